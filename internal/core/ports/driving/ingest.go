package driving

import (
	"context"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// IngestService writes documents into the chunk index.
type IngestService interface {
	// Ingest chunks, embeds and stores the document in the collection,
	// replacing any chunks a previous ingest of the same document ID
	// left behind. Returns the number of chunks written.
	//
	// Documents with empty or whitespace-only content are rejected with
	// domain.ErrInvalidInput.
	Ingest(ctx context.Context, collection string, doc domain.Document) (int, error)
}
