package configs

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"YapEngine/app/extractor"
	"YapEngine/app/models"
	"YapEngine/app/rag"
	"YapEngine/app/storage"
)

func (c EmbeddingsConfig) RetryPolicy() models.RetryPolicy {
	return models.RetryPolicy{
		MaxAttempts:      c.MaxAttempts,
		RateLimitBackoff: c.RateLimitBackoff,
		LoadingBackoff:   c.LoadingBackoff,
		TransientBackoff: c.TransientBackoff,
		MaxBackoff:       c.MaxBackoff,
		MaxRetryTime:     c.MaxRetryTime,
	}
}

func (c EmbeddingsConfig) BuildEmbedder() (*models.EmbeddingClient, error) {
	var provider models.Provider
	switch c.Provider {
	case ProviderHuggingFace:
		provider = models.NewHuggingFaceProvider(c.URL, c.APIKey, c.Timeout)
	case ProviderOpenAI:
		provider = models.NewOpenAIProvider(c.BaseURL, c.APIKey, c.Model, c.Dimension, c.Timeout)
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", c.Provider)
	}

	var limiter *rate.Limiter
	if c.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.RequestsPerSecond), max(c.Burst, 1))
	}
	logrus.Infof("🧠 Embeddings via %s (%s)", provider.Name(), c.Model)
	return models.NewEmbeddingClient(provider, c.RetryPolicy(), limiter), nil
}

func (c ChatConfig) BuildAnswerer() *models.LLMClient {
	logrus.Infof("💬 Answers via %s at %s", c.Model, c.BaseURL)
	return models.NewLLMClient(models.LLMConfig{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
	})
}

// BuildIndex connects to the configured backend and makes sure the collection exists.
func (c IndexConfig) BuildIndex(ctx context.Context, dimension int) (rag.Index, error) {
	var index rag.Index
	switch c.Backend {
	case BackendMemory:
		index = rag.NewMemoryStore()
	case BackendQdrant:
		store, err := rag.NewQdrantStore(rag.QdrantConfig{
			Host:       c.Host,
			Port:       c.Port,
			APIKey:     c.APIKey,
			UseTLS:     c.UseTLS,
			Collection: c.Collection,
			BatchSize:  c.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		index = store
	default:
		return nil, fmt.Errorf("unknown index backend %q", c.Backend)
	}

	if err := index.EnsureCollection(ctx, dimension); err != nil {
		index.Close()
		return nil, fmt.Errorf("ensure collection %s: %w", c.Collection, err)
	}
	logrus.Infof("🗂️ Vector index %s ready (%s)", c.Collection, c.Backend)
	return index, nil
}

// BuildLedger returns nil when the ledger is disabled.
func (c LedgerConfig) BuildLedger() (storage.Interface, error) {
	if !c.Enabled {
		logrus.Info("ℹ️ Ledger disabled")
		return nil, nil
	}
	ledger, err := storage.NewSQLiteLedger(c.Path)
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

func (c PipelineConfig) Options() rag.Options {
	return rag.Options{
		ChunkSize: c.ChunkSize,
		TopK:      c.TopK,
		MaxChunks: c.MaxChunks,
	}
}

// Components owns everything BuildPipeline opened.
type Components struct {
	Pipeline *rag.Client
	Index    rag.Index
	Ledger   storage.Interface
}

func (c *Components) Close() error {
	var errs []error
	if c.Index != nil {
		errs = append(errs, c.Index.Close())
	}
	if c.Ledger != nil {
		errs = append(errs, c.Ledger.Close())
	}
	return errors.Join(errs...)
}

func (c *Config) BuildPipeline(ctx context.Context) (*Components, error) {
	embedder, err := c.Embeddings.BuildEmbedder()
	if err != nil {
		return nil, err
	}

	index, err := c.Index.BuildIndex(ctx, c.Embeddings.Dimension)
	if err != nil {
		return nil, err
	}

	ledger, err := c.Ledger.BuildLedger()
	if err != nil {
		index.Close()
		return nil, err
	}

	pipeline := rag.NewClient(extractor.New(), embedder, c.Chat.BuildAnswerer(), index, ledger, c.Pipeline.Options())
	return &Components{Pipeline: pipeline, Index: index, Ledger: ledger}, nil
}
