package models

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyInput           = errors.New("embedding input is empty")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)

// Result is the outcome of one provider attempt: exactly one of Vector or Err is set.
type Result struct {
	Vector []float32
	Err    *ProviderError
}

// ProviderError describes a failed attempt. Status is 0 when no HTTP response
// was received, and 200 when the body itself carried an error.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return "provider request failed: " + e.Message
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Message)
}

func (e *ProviderError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// Loading is how hosted inference reports a model that is still warming up.
func (e *ProviderError) Loading() bool {
	return e.Status == http.StatusServiceUnavailable
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfRequestPayload struct {
	Inputs  string    `json:"inputs"`
	Options hfOptions `json:"options"`
}
