package rag

import (
	"context"
	"errors"
)

var (
	ErrNoText       = errors.New("no extractable text")
	ErrNoEmbeddings = errors.New("could not generate embeddings")
	ErrExtraction   = errors.New("text extraction failed")
)

const (
	BusyMessage      = "The embedding service is busy right now. Please try again in a moment."
	NoContextMessage = "No context found."
)

// Document is an uploaded file before extraction.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Chunk struct {
	Index int
	Text  string
}

// Record is one embedded chunk as stored in the index.
type Record struct {
	ID        string
	Key       string
	Vector    []float32
	Text      string
	Namespace string
	Filename  string
	Chunk     int
}

type Match struct {
	Record Record
	Score  float32
}

// Index is a namespace partitioned vector store. Queries never return records
// written under a different namespace.
type Index interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error)
	Close() error
}

type IngestResult struct {
	Filename  string
	Namespace string
	Indexed   int
	Skipped   int
	RecordIDs []string
}

type Answer struct {
	Text     string
	Context  string
	Matches  []Match
	Degraded bool
}
