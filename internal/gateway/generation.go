package gateway

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
)

// GenerationGateway rate-limits and retries calls to a generation
// backend.
type GenerationGateway struct {
	svc     driven.LLMService
	cfg     Config
	limiter *rate.Limiter
}

// NewGenerationGateway wraps the given LLM service.
func NewGenerationGateway(svc driven.LLMService, cfg Config) *GenerationGateway {
	cfg = cfg.withDefaults()

	return &GenerationGateway{
		svc:     svc,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Generate produces answer text for the prompt.
// An empty completion is reported as a backend failure rather than
// returned as a degraded success.
func (g *GenerationGateway) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var answer string

	err := call(ctx, g.cfg, g.limiter, "generate", func(callCtx context.Context) error {
		text, err := g.svc.Generate(callCtx, prompt, opts)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("backend returned empty completion: %w", domain.ErrBackendPermanent)
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", err
	}

	return answer, nil
}

// ModelName returns the backend's model name.
func (g *GenerationGateway) ModelName() string {
	return g.svc.ModelName()
}
