package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"

	BackendQdrant = "qdrant"
	BackendMemory = "memory"

	hfURLTemplate = "https://router.huggingface.co/hf-inference/models/%s/pipeline/feature-extraction"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Index      IndexConfig      `yaml:"index"`
	Chat       ChatConfig       `yaml:"chat"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Ledger     LedgerConfig     `yaml:"ledger"`
}

type ServerConfig struct {
	Address           string        `yaml:"address" validate:"required"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	File   string `yaml:"file,omitempty"`
}

type EmbeddingsConfig struct {
	Provider string `yaml:"provider" validate:"oneof=huggingface openai"`
	Model    string `yaml:"model" validate:"required"`
	// URL is the full feature-extraction endpoint for huggingface. Derived from Model when empty.
	URL string `yaml:"url,omitempty"`
	// BaseURL is the OpenAI compatible API root for the openai provider.
	BaseURL   string        `yaml:"base_url,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"`
	Dimension int           `yaml:"dimension" validate:"gte=1"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`

	MaxAttempts      int           `yaml:"max_attempts" validate:"gte=1"`
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff" validate:"gte=0"`
	LoadingBackoff   time.Duration `yaml:"loading_backoff" validate:"gte=0"`
	TransientBackoff time.Duration `yaml:"transient_backoff" validate:"gte=0"`
	MaxBackoff       time.Duration `yaml:"max_backoff" validate:"gte=0"`
	MaxRetryTime     time.Duration `yaml:"max_retry_time" validate:"gte=0"`

	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
}

type IndexConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=qdrant memory"`
	Host       string `yaml:"host" validate:"required_if=Backend qdrant"`
	Port       int    `yaml:"port" validate:"gte=0,lte=65535"`
	APIKey     string `yaml:"api_key,omitempty"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection" validate:"required"`
	BatchSize  int    `yaml:"batch_size" validate:"gte=1"`
}

type ChatConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key,omitempty"`
	Model       string        `yaml:"model" validate:"required"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

type PipelineConfig struct {
	ChunkSize        int    `yaml:"chunk_size" validate:"gte=1"`
	TopK             int    `yaml:"top_k" validate:"gte=1"`
	MaxChunks        int    `yaml:"max_chunks" validate:"gte=0"`
	RequireSession   bool   `yaml:"require_session"`
	DefaultNamespace string `yaml:"default_namespace" validate:"required_if=RequireSession false"`
	IncludeSource    bool   `yaml:"include_source"`
}

type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:           ":8000",
			MaxUploadBytes:    32 << 20,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Embeddings: EmbeddingsConfig{
			Provider:          ProviderHuggingFace,
			Model:             "sentence-transformers/all-MiniLM-L6-v2",
			Dimension:         384,
			Timeout:           30 * time.Second,
			MaxAttempts:       5,
			RateLimitBackoff:  2 * time.Second,
			LoadingBackoff:    5 * time.Second,
			TransientBackoff:  500 * time.Millisecond,
			MaxBackoff:        60 * time.Second,
			MaxRetryTime:      2 * time.Minute,
			RequestsPerSecond: 2,
			Burst:             1,
		},
		Index: IndexConfig{
			Backend:    BackendQdrant,
			Host:       envOr("QDRANT_URL", "localhost"),
			Port:       envInt("QDRANT_PORT", 6334),
			Collection: "chat-index",
			BatchSize:  100,
		},
		Chat: ChatConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.2,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
		Pipeline: PipelineConfig{
			ChunkSize:        1000,
			TopK:             3,
			DefaultNamespace: "default",
		},
		Ledger: LedgerConfig{Enabled: true, Path: "data/ledger.db"},
	}
}

// LoadConfig reads a YAML file over the defaults. Environment variables in the
// file are expanded first. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read configs file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err = yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	}

	cfg.applySecrets()
	if cfg.Embeddings.Provider == ProviderHuggingFace && cfg.Embeddings.URL == "" {
		cfg.Embeddings.URL = fmt.Sprintf(hfURLTemplate, cfg.Embeddings.Model)
	}
	return &cfg, nil
}

func (c *Config) applySecrets() {
	if c.Embeddings.APIKey == "" {
		switch c.Embeddings.Provider {
		case ProviderHuggingFace:
			c.Embeddings.APIKey = os.Getenv("HF_TOKEN")
		case ProviderOpenAI:
			c.Embeddings.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Chat.APIKey == "" {
		c.Chat.APIKey = envOr("GROQ_API_KEY", os.Getenv("OPENAI_API_KEY"))
	}
	if c.Index.APIKey == "" {
		c.Index.APIKey = os.Getenv("QDRANT_API_KEY")
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config at %s: failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
