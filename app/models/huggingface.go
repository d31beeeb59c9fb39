package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"YapEngine/app/utils"
	"YapEngine/app/utils/restclient"
)

var _ Provider = &HuggingFaceProvider{}

// HuggingFaceProvider calls a feature-extraction pipeline endpoint. The model is
// part of the endpoint URL.
type HuggingFaceProvider struct {
	restClient restclient.Interface
}

func NewHuggingFaceProvider(url, token string, timeout time.Duration) *HuggingFaceProvider {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &HuggingFaceProvider{restClient: restclient.NewRestClient(url, headers, timeout)}
}

func (p *HuggingFaceProvider) Name() string { return "huggingface" }

func (p *HuggingFaceProvider) Request(ctx context.Context, text string) Result {
	payload := hfRequestPayload{Inputs: text, Options: hfOptions{WaitForModel: true}}

	body, status, err := p.restClient.Post(ctx, "", payload, nil)
	if err != nil {
		return Result{Err: &ProviderError{Status: status, Message: err.Error()}}
	}
	if status != http.StatusOK {
		return Result{Err: &ProviderError{Status: status, Message: errorMessage(body)}}
	}

	vec, err := normalizeEmbedding(body)
	if err != nil {
		return Result{Err: &ProviderError{Status: status, Message: err.Error()}}
	}
	return Result{Vector: vec}
}

// normalizeEmbedding accepts a flat array or an array holding one array, and
// treats an {"error": ...} object as a failure.
func normalizeEmbedding(body []byte) ([]float32, error) {
	var raw any
	if err := json.Unmarshal(bytes.TrimSpace(body), &raw); err != nil {
		return nil, fmt.Errorf("parse embedding json: %w", err)
	}

	switch v := raw.(type) {
	case map[string]any:
		if e, ok := v["error"]; ok {
			return nil, fmt.Errorf("provider error: %v", e)
		}
		return nil, errors.New("unexpected object in embedding response")
	case []any:
		if len(v) == 0 {
			return nil, errors.New("empty embedding")
		}
		if inner, ok := v[0].([]any); ok {
			v = inner
		}
		if len(v) == 0 {
			return nil, errors.New("empty embedding")
		}
		out := make([]float32, len(v))
		for i, x := range v {
			f, ok := x.(float64)
			if !ok {
				return nil, fmt.Errorf("unexpected %T at position %d in embedding", x, i)
			}
			out[i] = float32(f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected %T embedding response", raw)
	}
}

func errorMessage(body []byte) string {
	var out struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Error != nil {
		return fmt.Sprintf("%v", out.Error)
	}
	return utils.Truncate(string(body), 200)
}
