package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var _ Interface = &SQLiteLedger{}

const timeLayout = time.RFC3339Nano

type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) the ledger database at path. Missing
// parent directories are created.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	if path == "" {
		path = filepath.Join("data", "ledger.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger at %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent uploads
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS documents (
            namespace TEXT NOT NULL,
            filename TEXT NOT NULL,
            chunks_indexed INTEGER NOT NULL,
            chunks_skipped INTEGER NOT NULL,
            record_ids TEXT NOT NULL,
            indexed_at TEXT NOT NULL,
            PRIMARY KEY (namespace, filename)
        );
        CREATE INDEX IF NOT EXISTS idx_documents_namespace ON documents (namespace);
    `)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	logrus.Infof("📂 Ledger ready at %s", path)
	return &SQLiteLedger{db: db}, nil
}

func (s *SQLiteLedger) SaveDocument(ctx context.Context, entry LedgerEntry) error {
	if entry.IndexedAt.IsZero() {
		entry.IndexedAt = time.Now()
	}
	ids, err := json.Marshal(entry.RecordIDs)
	if err != nil {
		return fmt.Errorf("encode record ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (namespace, filename, chunks_indexed, chunks_skipped, record_ids, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, filename) DO UPDATE SET
		     chunks_indexed = excluded.chunks_indexed,
		     chunks_skipped = excluded.chunks_skipped,
		     record_ids = excluded.record_ids,
		     indexed_at = excluded.indexed_at`,
		entry.Namespace, entry.Filename, entry.ChunksIndexed, entry.ChunksSkipped, string(ids),
		entry.IndexedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save document %s/%s: %w", entry.Namespace, entry.Filename, err)
	}
	return nil
}

func (s *SQLiteLedger) ListDocuments(ctx context.Context, namespace string) ([]LedgerEntry, error) {
	return s.query(ctx,
		`SELECT namespace, filename, chunks_indexed, chunks_skipped, record_ids, indexed_at
		 FROM documents
		 WHERE namespace = ?
		 ORDER BY filename ASC`,
		namespace,
	)
}

func (s *SQLiteLedger) ListAll(ctx context.Context) ([]LedgerEntry, error) {
	return s.query(ctx,
		`SELECT namespace, filename, chunks_indexed, chunks_skipped, record_ids, indexed_at
		 FROM documents
		 ORDER BY namespace ASC, filename ASC`,
	)
}

func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedger) query(ctx context.Context, q string, args ...any) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		var ids, indexedAt string
		if err = rows.Scan(&e.Namespace, &e.Filename, &e.ChunksIndexed, &e.ChunksSkipped, &ids, &indexedAt); err != nil {
			return nil, err
		}
		if err = json.Unmarshal([]byte(ids), &e.RecordIDs); err != nil {
			logrus.Warnf("⚠️ Bad record ids for %s/%s: %v", e.Namespace, e.Filename, err)
		}
		e.IndexedAt, _ = time.Parse(timeLayout, indexedAt)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
