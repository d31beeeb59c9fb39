package models

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ Provider = &OpenAIProvider{}

// OpenAIProvider talks to any OpenAI compatible /embeddings endpoint.
type OpenAIProvider struct {
	client     openai.Client
	model      string
	dimensions int
}

func NewOpenAIProvider(baseURL, apiKey, model string, dimensions int, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		client:     openai.NewClient(clientOptions(baseURL, apiKey, timeout)...),
		model:      model,
		dimensions: dimensions,
	}
}

// clientOptions disables the SDK retries; callers apply their own policy.
func clientOptions(baseURL, apiKey string, timeout time.Duration) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return opts
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Request(ctx context.Context, text string) Result {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(p.model),
	}
	// only the text-embedding-3 family accepts a dimensions override
	if p.dimensions > 0 && strings.HasPrefix(p.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(p.dimensions))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return Result{Err: toProviderError(err)}
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return Result{Err: &ProviderError{Status: http.StatusOK, Message: "no embedding data returned"}}
	}

	src := resp.Data[0].Embedding
	vec := make([]float32, len(src))
	for i, v := range src {
		vec[i] = float32(v)
	}
	return Result{Vector: vec}
}

func toProviderError(err error) *ProviderError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return &ProviderError{Message: err.Error()}
}
