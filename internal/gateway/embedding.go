package gateway

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
	"github.com/coretext-ai/corpusqa/internal/logger"
)

// DefaultBatchSize is the default number of texts per embedding request.
const DefaultBatchSize = 64

// EmbeddingGateway batches, rate-limits and retries calls to an
// embedding backend. Request-to-response ordering is preserved even
// though batches run concurrently.
type EmbeddingGateway struct {
	svc       driven.EmbeddingService
	cfg       Config
	batchSize int
	limiter   *rate.Limiter
}

// NewEmbeddingGateway wraps the given embedding service.
// A batchSize of zero or less falls back to DefaultBatchSize.
func NewEmbeddingGateway(svc driven.EmbeddingService, cfg Config, batchSize int) *EmbeddingGateway {
	cfg = cfg.withDefaults()
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &EmbeddingGateway{
		svc:       svc,
		cfg:       cfg,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Embed generates the embedding for a single text.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for all texts, splitting them into
// bounded-size backend requests that run with at most
// Config.ConcurrencyLimit in flight. The result has the same length and
// order as the input; any failed batch fails the whole operation.
func (g *EmbeddingGateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.cfg.ConcurrencyLimit)

	batches := 0
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches++

		group.Go(func() error {
			op := fmt.Sprintf("embed batch [%d:%d]", start, end)

			return call(groupCtx, g.cfg, g.limiter, op, func(callCtx context.Context) error {
				batch, err := g.svc.EmbedBatch(callCtx, texts[start:end])
				if err != nil {
					return err
				}
				if len(batch) != end-start {
					return fmt.Errorf("backend returned %d embeddings for %d texts: %w",
						len(batch), end-start, domain.ErrBackendPermanent)
				}
				copy(vectors[start:end], batch)
				return nil
			})
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("embedded %d texts in %d batches (model %s)", len(texts), batches, g.svc.ModelName())
	return vectors, nil
}

// Dimensions returns the backend's embedding vector size.
func (g *EmbeddingGateway) Dimensions() int {
	return g.svc.Dimensions()
}

// ModelName returns the backend's model name.
func (g *EmbeddingGateway) ModelName() string {
	return g.svc.ModelName()
}
