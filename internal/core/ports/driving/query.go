package driving

import (
	"context"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// QueryService answers natural-language questions over a collection.
type QueryService interface {
	// Ask embeds the question, retrieves the most similar chunks,
	// assembles a bounded context, generates an answer and maps the
	// chunks actually used back to citations.
	Ask(ctx context.Context, collection, question string, opts domain.QueryOptions) (*domain.QueryResult, error)
}
