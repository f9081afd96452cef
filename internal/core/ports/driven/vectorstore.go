package driven

import (
	"context"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// VectorStore persists chunks with their vectors in named collections
// and answers similarity queries over them.
//
// Collections are created implicitly on first write. All vectors in a
// collection share one dimensionality; the store rejects writes and
// queries that disagree with it.
type VectorStore interface {
	// Upsert replaces all chunks stored for (collection, documentID)
	// with the given set, atomically. Re-ingesting a document never
	// leaves chunks from an earlier ingest behind. Every chunk must
	// carry an embedding.
	Upsert(ctx context.Context, collection, documentID string, chunks []domain.Chunk) error

	// Search returns up to k chunks ranked by descending cosine
	// similarity to the query vector, among those whose metadata
	// contains all entries of filter (nil filter matches everything).
	// Ties rank by ingestion order, earlier first. Searching an empty
	// or unknown collection returns no results, not an error.
	//
	// The scan is exact nearest-neighbour; no approximation is applied.
	Search(ctx context.Context, collection string, query []float32, k int, filter map[string]any) ([]domain.RetrievedChunk, error)

	// DeleteCollection removes every chunk in the collection.
	// Idempotent: deleting an empty or unknown collection is a no-op.
	DeleteCollection(ctx context.Context, collection string) error

	// Info returns a summary of the collection. Empty or unknown
	// collections report zero counts rather than an error.
	Info(ctx context.Context, collection string) (domain.CollectionInfo, error)

	// Close releases resources.
	Close() error
}
