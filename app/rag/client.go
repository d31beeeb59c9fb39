package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"YapEngine/app/extractor"
	"YapEngine/app/models"
	"YapEngine/app/storage"
	"YapEngine/app/utils"
)

const defaultTopK = 3

type Options struct {
	ChunkSize int
	TopK      int
	// MaxChunks caps how many chunks of one document are embedded. Zero means no cap.
	MaxChunks int
}

// Client runs the ingestion and query pipelines over injected collaborators.
type Client struct {
	extractor extractor.Interface
	embedder  models.Embedder
	answerer  models.Answerer
	index     Index
	ledger    storage.Interface
	opts      Options
}

// NewClient wires a pipeline. ledger may be nil.
func NewClient(ex extractor.Interface, embedder models.Embedder, answerer models.Answerer, index Index, ledger storage.Interface, opts Options) *Client {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	return &Client{
		extractor: ex,
		embedder:  embedder,
		answerer:  answerer,
		index:     index,
		ledger:    ledger,
		opts:      opts,
	}
}

func (c *Client) Ingest(ctx context.Context, namespace string, doc Document) (*IngestResult, error) {
	log := logrus.WithFields(logrus.Fields{"namespace": namespace, "filename": doc.Filename})

	text, err := c.extractor.Extract(ctx, doc.Filename, doc.ContentType, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExtraction, doc.Filename, err)
	}
	if utils.IsBlank(text) {
		return nil, ErrNoText
	}

	chunks := ChunkText(text, c.opts.ChunkSize)
	skipped := 0
	if c.opts.MaxChunks > 0 && len(chunks) > c.opts.MaxChunks {
		skipped = len(chunks) - c.opts.MaxChunks
		log.Warnf("✂️ Capping %d chunks to %d", len(chunks), c.opts.MaxChunks)
		chunks = chunks[:c.opts.MaxChunks]
	}
	log.Infof("📄 Extracted %d characters into %d chunks", len([]rune(text)), len(chunks))

	records := make([]Record, 0, len(chunks))
	for _, ch := range chunks {
		vec, err := c.embedder.Embed(ctx, ch.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skipped++
			log.WithField("chunk", ch.Index).Warnf("⚠️ Skipping chunk: %v", err)
			continue
		}
		records = append(records, Record{
			ID:        utils.RecordID(namespace, doc.Filename, ch.Index),
			Key:       utils.RecordKey(doc.Filename, ch.Index),
			Vector:    vec,
			Text:      ch.Text,
			Namespace: namespace,
			Filename:  doc.Filename,
			Chunk:     ch.Index,
		})
	}

	if len(records) == 0 {
		return nil, ErrNoEmbeddings
	}
	if err = c.index.Upsert(ctx, namespace, records); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", doc.Filename, err)
	}

	result := &IngestResult{
		Filename:  doc.Filename,
		Namespace: namespace,
		Indexed:   len(records),
		Skipped:   skipped,
		RecordIDs: make([]string, len(records)),
	}
	for i, r := range records {
		result.RecordIDs[i] = r.ID
	}

	if c.ledger != nil {
		if err = c.ledger.SaveDocument(ctx, storage.LedgerEntry{
			Namespace:     namespace,
			Filename:      doc.Filename,
			ChunksIndexed: result.Indexed,
			ChunksSkipped: result.Skipped,
			RecordIDs:     result.RecordIDs,
		}); err != nil {
			log.Errorf("❌ Ledger write failed: %v", err)
		}
	}

	log.Infof("✅ Indexed %d chunks, skipped %d", result.Indexed, result.Skipped)
	return result, nil
}

func (c *Client) Ask(ctx context.Context, namespace, question string) (*Answer, error) {
	log := logrus.WithField("namespace", namespace)

	vec, err := c.embedder.Embed(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("⏳ Question embedding unavailable: %v", err)
		return &Answer{Text: BusyMessage, Degraded: true}, nil
	}

	matches, err := c.index.Query(ctx, namespace, vec, c.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	contextText := NoContextMessage
	if len(matches) > 0 {
		texts := make([]string, len(matches))
		for i, m := range matches {
			texts[i] = m.Record.Text
		}
		contextText = strings.Join(texts, "\n\n")
	}
	log.Debugf("🔎 Retrieved %d matches", len(matches))

	reply, err := c.answerer.Answer(ctx, question, contextText)
	if err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}
	return &Answer{Text: reply, Context: contextText, Matches: matches}, nil
}

// Documents lists what the ledger recorded for a namespace.
func (c *Client) Documents(ctx context.Context, namespace string) ([]storage.LedgerEntry, error) {
	if c.ledger == nil {
		return []storage.LedgerEntry{}, nil
	}
	return c.ledger.ListDocuments(ctx, namespace)
}
