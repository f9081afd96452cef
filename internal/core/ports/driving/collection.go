package driving

import (
	"context"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// CollectionService exposes administrative operations over collections.
type CollectionService interface {
	// Info returns chunk count and vector dimension for the collection.
	// Unknown collections report zeroes.
	Info(ctx context.Context, collection string) (domain.CollectionInfo, error)

	// Clear removes all chunks from the collection. Idempotent.
	Clear(ctx context.Context, collection string) error
}
