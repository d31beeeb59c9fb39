package storage

import (
	"context"
	"time"
)

// Interface records which documents were indexed under each namespace.
type Interface interface {
	SaveDocument(ctx context.Context, entry LedgerEntry) error
	ListDocuments(ctx context.Context, namespace string) ([]LedgerEntry, error)
	ListAll(ctx context.Context) ([]LedgerEntry, error)
	Close() error
}

type LedgerEntry struct {
	Namespace     string    `json:"namespace" db:"namespace"`
	Filename      string    `json:"filename" db:"filename"`
	ChunksIndexed int       `json:"chunks_indexed" db:"chunks_indexed"`
	ChunksSkipped int       `json:"chunks_skipped" db:"chunks_skipped"`
	RecordIDs     []string  `json:"record_ids" db:"record_ids"`
	IndexedAt     time.Time `json:"indexed_at" db:"indexed_at"`
}
