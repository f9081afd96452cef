package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driving"
	"github.com/coretext-ai/corpusqa/internal/gateway"
	"github.com/coretext-ai/corpusqa/internal/logger"
)

// Ensure QAService implements the interface.
var _ driving.QueryService = (*QAService)(nil)

// noContextMarker is passed to the generation backend when retrieval
// found nothing, so the model declines instead of inventing an answer.
const noContextMarker = "NO CONTEXT FOUND: the document index returned no relevant passages for this question."

// snippetLimit bounds the excerpt stored on each citation.
const snippetLimit = 200

// QAConfig holds the query-time tuning knobs.
type QAConfig struct {
	// RetrievalK is the default number of chunks to retrieve.
	RetrievalK int

	// MaxContextSize is the character budget for the assembled context.
	MaxContextSize int

	// MaxTokens caps the generated answer length. Zero means the
	// backend default.
	MaxTokens int

	// Temperature is the generation temperature.
	Temperature float64
}

// QAService answers questions by retrieval-augmented generation.
// It holds no per-query state; every call embeds the question,
// retrieves similar chunks, assembles a bounded context, generates an
// answer and attributes it, terminating on the first failure.
type QAService struct {
	store     driven.VectorStore
	embedder  *gateway.EmbeddingGateway
	generator *gateway.GenerationGateway
	prompts   driven.PromptStore
	cfg       QAConfig
}

// NewQAService creates a new question-answering service.
func NewQAService(
	store driven.VectorStore,
	embedder *gateway.EmbeddingGateway,
	generator *gateway.GenerationGateway,
	prompts driven.PromptStore,
	cfg QAConfig,
) *QAService {
	return &QAService{
		store:     store,
		embedder:  embedder,
		generator: generator,
		prompts:   prompts,
		cfg:       cfg,
	}
}

// Ask answers the question over the collection.
//
// An empty retrieval result is not an error: generation still runs,
// with an explicit no-context marker in place of the context, and the
// result carries no citations.
func (s *QAService) Ask(ctx context.Context, collection, question string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("query: collection name is empty: %w", domain.ErrInvalidInput)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("query: question is empty: %w", domain.ErrInvalidInput)
	}

	k := opts.K
	if k == 0 {
		k = s.cfg.RetrievalK
	}
	if k <= 0 {
		return nil, fmt.Errorf("query: k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}

	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("query: embed question: %w", err)
	}

	retrieved, err := s.store.Search(ctx, collection, queryVector, k, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("query: retrieve: %w", err)
	}
	logger.Debug("query %q: retrieved %d chunks (k=%d)", question, len(retrieved), k)

	contextText, used := s.assembleContext(retrieved)

	template, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		return nil, fmt.Errorf("query: load prompt: %w", err)
	}
	prompt := fmt.Sprintf(template, contextText, question)

	answer, err := s.generator.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("query: generate: %w", err)
	}

	citations := make([]domain.Citation, len(used))
	for i, rc := range used {
		citations[i] = domain.Citation{
			DocumentID: rc.Chunk.DocumentID,
			Ordinal:    rc.Chunk.Ordinal,
			Score:      rc.Score,
			Snippet:    snippet(rc.Chunk.Content),
		}
	}

	logger.Info("answered query over %s with %d citations", collection, len(citations))
	return &domain.QueryResult{Answer: answer, Citations: citations}, nil
}

// assembleContext concatenates retrieved chunk texts in ranked order up
// to the configured budget and reports which chunks made it in. Only
// those chunks become citation candidates.
//
// A chunk whose text alone exceeds the whole budget is excluded rather
// than truncated: truncating would cite text the model never saw in
// full. Assembly continues with the next ranked chunk.
func (s *QAService) assembleContext(retrieved []domain.RetrievedChunk) (string, []domain.RetrievedChunk) {
	if len(retrieved) == 0 {
		return noContextMarker, nil
	}

	var b strings.Builder
	var used []domain.RetrievedChunk
	size := 0

	for _, rc := range retrieved {
		sep := 0
		if len(used) > 0 {
			sep = 2 // "\n\n" between chunks
		}

		if size+sep+len(rc.Chunk.Content) > s.cfg.MaxContextSize {
			logger.Debug("context budget: dropping chunk %s (%d chars, %d used of %d)",
				rc.Chunk.ID, len(rc.Chunk.Content), size, s.cfg.MaxContextSize)
			continue
		}

		if len(used) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(rc.Chunk.Content)
		size += sep + len(rc.Chunk.Content)
		used = append(used, rc)
	}

	if len(used) == 0 {
		return noContextMarker, nil
	}
	return b.String(), used
}

// snippet bounds a chunk excerpt for citation display. Trimming happens
// on a rune boundary so multibyte content stays valid UTF-8.
func snippet(content string) string {
	if len(content) <= snippetLimit {
		return content
	}
	runes := []rune(content)
	if len(runes) <= snippetLimit {
		return content
	}
	return string(runes[:snippetLimit]) + "..."
}
