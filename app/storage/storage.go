package storage

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// DocumentTree renders entries as namespace -> filename branches. Entries are
// expected in namespace order, as ListAll returns them.
func DocumentTree(entries []LedgerEntry) string {
	tree := treeprint.New()
	tree.SetValue("ledger")

	var branch treeprint.Tree
	current := ""
	for i, e := range entries {
		if i == 0 || e.Namespace != current {
			branch = tree.AddBranch(e.Namespace)
			current = e.Namespace
		}
		branch.AddMetaNode(
			fmt.Sprintf("%d indexed, %d skipped", e.ChunksIndexed, e.ChunksSkipped),
			e.Filename,
		)
	}
	return tree.String()
}
