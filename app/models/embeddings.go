package models

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"YapEngine/app/utils"
)

var _ Embedder = &EmbeddingClient{}

// RetryPolicy holds the starting backoff per failure class. Every class grows
// exponentially with jitter up to MaxBackoff.
type RetryPolicy struct {
	MaxAttempts      int
	RateLimitBackoff time.Duration
	LoadingBackoff   time.Duration
	TransientBackoff time.Duration
	MaxBackoff       time.Duration
	// MaxRetryTime bounds a whole Embed call, sleeps included. Zero means no bound.
	MaxRetryTime time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      5,
		RateLimitBackoff: 2 * time.Second,
		LoadingBackoff:   5 * time.Second,
		TransientBackoff: 500 * time.Millisecond,
		MaxBackoff:       60 * time.Second,
		MaxRetryTime:     2 * time.Minute,
	}
}

type failureClass int

const (
	classTransient failureClass = iota
	classRateLimited
	classLoading
)

func (f failureClass) String() string {
	switch f {
	case classRateLimited:
		return "rate_limited"
	case classLoading:
		return "loading"
	}
	return "transient"
}

func classify(err *ProviderError) failureClass {
	switch {
	case err.RateLimited():
		return classRateLimited
	case err.Loading():
		return classLoading
	}
	return classTransient
}

// EmbeddingClient wraps a Provider with retries and a request gate shared by
// every caller of the same client.
type EmbeddingClient struct {
	provider Provider
	policy   RetryPolicy
	limiter  *rate.Limiter
	wait     func(context.Context, time.Duration) error
}

// NewEmbeddingClient builds a client; a nil limiter disables the request gate.
func NewEmbeddingClient(provider Provider, policy RetryPolicy, limiter *rate.Limiter) *EmbeddingClient {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = DefaultRetryPolicy().MaxBackoff
	}
	return &EmbeddingClient{
		provider: provider,
		policy:   policy,
		limiter:  limiter,
		wait:     sleepContext,
	}
}

func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = utils.FlattenNewlines(text)
	if utils.IsBlank(text) {
		return nil, ErrEmptyInput
	}

	if c.policy.MaxRetryTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.MaxRetryTime)
		defer cancel()
	}

	backoffs := make(map[failureClass]*backoff.ExponentialBackOff)
	var lastErr error
	attempts := 0

	for attempts < c.policy.MaxAttempts {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		res := c.provider.Request(ctx, text)
		if res.Err == nil {
			return res.Vector, nil
		}
		lastErr = res.Err

		class := classify(res.Err)
		logrus.WithFields(logrus.Fields{
			"provider": c.provider.Name(),
			"attempt":  attempts,
			"status":   res.Err.Status,
			"class":    class.String(),
		}).Warnf("⚠️ embed attempt failed: %s", res.Err.Message)

		if attempts >= c.policy.MaxAttempts {
			break
		}

		b, ok := backoffs[class]
		if !ok {
			b = c.newBackOff(class)
			backoffs[class] = b
		}
		if err := c.wait(ctx, b.NextBackOff()); err != nil {
			lastErr = err
			break
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrEmbeddingUnavailable, attempts, lastErr)
}

func (c *EmbeddingClient) newBackOff(class failureClass) *backoff.ExponentialBackOff {
	initial := c.policy.TransientBackoff
	switch class {
	case classRateLimited:
		initial = c.policy.RateLimitBackoff
	case classLoading:
		initial = c.policy.LoadingBackoff
	}
	if initial <= 0 {
		initial = time.Millisecond
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = c.policy.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
