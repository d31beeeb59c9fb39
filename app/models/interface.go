package models

import "context"

// Embedder turns text into a vector. Implementations own their retry policy;
// a returned error means no vector is available for this text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Answerer produces a reply to a question using only the given context.
type Answerer interface {
	Answer(ctx context.Context, question, context string) (string, error)
}

// Provider performs a single embedding attempt against one remote API and
// reports the outcome as a Result, never by inspecting response shapes upstream.
type Provider interface {
	Name() string
	Request(ctx context.Context, text string) Result
}
