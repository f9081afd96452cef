package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
)

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// fastConfig keeps retry delays negligible in tests.
func fastConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:  attempts,
		RetryBackoffBase:  time.Millisecond,
		Timeout:           time.Second,
		ConcurrencyLimit:  4,
		RequestsPerSecond: 10000,
		Burst:             10000,
	}
}

// fakeEmbedder is a counting EmbeddingService stub.
type fakeEmbedder struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	failWith  error
	dims      int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failFirst
	f.mu.Unlock()

	if fail {
		return nil, f.failWith
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

func (f *fakeEmbedder) Ping(context.Context) error { return nil }

func (f *fakeEmbedder) Close() error { return nil }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ driven.EmbeddingService = (*fakeEmbedder)(nil)

// fakeLLM is a counting LLMService stub.
type fakeLLM struct {
	calls     atomic.Int64
	failFirst int64
	failWith  error
	answer    string
}

func (f *fakeLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	if f.calls.Add(1) <= f.failFirst {
		return "", f.failWith
	}
	return f.answer, nil
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }

func (f *fakeLLM) Ping(context.Context) error { return nil }

func (f *fakeLLM) Close() error { return nil }

var _ driven.LLMService = (*fakeLLM)(nil)

func TestEmbedBatch_OrderPreserved(t *testing.T) {
	svc := &fakeEmbedder{dims: 2}
	g := NewEmbeddingGateway(svc, fastConfig(1), 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
	// 5 texts at batch size 2 means 3 backend calls.
	assert.Equal(t, 3, svc.callCount())
}

func TestEmbedBatch_Empty(t *testing.T) {
	g := NewEmbeddingGateway(&fakeEmbedder{}, fastConfig(1), 2)

	vectors, err := g.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedBatch_RetriesTransient(t *testing.T) {
	svc := &fakeEmbedder{
		failFirst: 2,
		failWith:  fmt.Errorf("http 503: %w", domain.ErrBackendTransient),
	}
	g := NewEmbeddingGateway(svc, fastConfig(3), 64)

	vectors, err := g.EmbedBatch(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 3, svc.callCount())
}

func TestEmbedBatch_ExhaustsRetries(t *testing.T) {
	svc := &fakeEmbedder{
		failFirst: 100,
		failWith:  fmt.Errorf("http 503: %w", domain.ErrBackendTransient),
	}
	g := NewEmbeddingGateway(svc, fastConfig(3), 64)

	_, err := g.EmbedBatch(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendTransient)
	assert.Contains(t, err.Error(), "retries exhausted after 3 attempts")
	// Total attempts, not retries after the first.
	assert.Equal(t, 3, svc.callCount())
}

func TestEmbedBatch_PermanentFailsImmediately(t *testing.T) {
	svc := &fakeEmbedder{
		failFirst: 100,
		failWith:  fmt.Errorf("http 401: %w", domain.ErrBackendPermanent),
	}
	g := NewEmbeddingGateway(svc, fastConfig(3), 64)

	_, err := g.EmbedBatch(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendPermanent)
	assert.Equal(t, 1, svc.callCount())
}

func TestEmbedBatch_CallerCancel(t *testing.T) {
	svc := &fakeEmbedder{
		failFirst: 100,
		failWith:  fmt.Errorf("http 503: %w", domain.ErrBackendTransient),
	}
	g := NewEmbeddingGateway(svc, fastConfig(10), 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.EmbedBatch(ctx, []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// shortEmbedder returns fewer vectors than texts.
type shortEmbedder struct {
	fakeEmbedder
}

func (s *shortEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func TestEmbedBatch_LengthMismatch(t *testing.T) {
	g := NewEmbeddingGateway(&shortEmbedder{}, fastConfig(3), 64)

	_, err := g.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendPermanent)
}

func TestGenerate_Success(t *testing.T) {
	svc := &fakeLLM{answer: "the answer"}
	g := NewGenerationGateway(svc, fastConfig(3))

	answer, err := g.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
}

func TestGenerate_EmptyCompletionIsError(t *testing.T) {
	svc := &fakeLLM{answer: "   "}
	g := NewGenerationGateway(svc, fastConfig(3))

	_, err := g.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendPermanent)
	assert.Equal(t, int64(1), svc.calls.Load())
}

func TestGenerate_RetriesTransient(t *testing.T) {
	svc := &fakeLLM{
		failFirst: 1,
		failWith:  fmt.Errorf("http 429: %w", domain.ErrBackendTransient),
		answer:    "eventually",
	}
	g := NewGenerationGateway(svc, fastConfig(3))

	answer, err := g.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "eventually", answer)
	assert.Equal(t, int64(2), svc.calls.Load())
}

// slowLLM blocks until its context expires.
type slowLLM struct {
	fakeLLM
}

func (s *slowLLM) Generate(ctx context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerate_TimeoutIsTransient(t *testing.T) {
	svc := &slowLLM{}
	cfg := fastConfig(2)
	cfg.Timeout = 5 * time.Millisecond
	g := NewGenerationGateway(svc, cfg)

	_, err := g.Generate(context.Background(), "prompt", driven.GenerateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBackendTransient)
	assert.Equal(t, int64(2), svc.calls.Load())
}

// hintedError carries a server-provided retry delay.
type hintedError struct {
	after time.Duration
}

func (e *hintedError) Error() string { return "throttled" }

func (e *hintedError) Unwrap() error { return domain.ErrBackendTransient }

func (e *hintedError) RetryAfter() time.Duration { return e.after }

func TestCall_RetryAfterHintExtendsBackoff(t *testing.T) {
	cfg := fastConfig(2)
	limiter := newTestLimiter()

	var calls int
	start := time.Now()
	err := call(context.Background(), cfg, limiter, "op", func(context.Context) error {
		calls++
		if calls == 1 {
			return &hintedError{after: 30 * time.Millisecond}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, DefaultRetryMaxAttempts, cfg.RetryMaxAttempts)
	assert.Equal(t, DefaultRetryBackoffBase, cfg.RetryBackoffBase)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultConcurrencyLimit, cfg.ConcurrencyLimit)
	assert.Equal(t, DefaultRequestsPerSecond, cfg.RequestsPerSecond)
	assert.Equal(t, DefaultBurst, cfg.Burst)
}

func TestCall_WrapsLastError(t *testing.T) {
	cfg := fastConfig(2)
	limiter := newTestLimiter()

	base := errors.New("boom")
	err := call(context.Background(), cfg, limiter, "op", func(context.Context) error {
		return fmt.Errorf("%w: %w", domain.ErrBackendTransient, base)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, domain.ErrBackendTransient)
}
