package domain

import (
	"strconv"
	"time"
)

// Document represents a unit of ingested text with its metadata.
// It is immutable once stored; re-ingesting the same ID replaces its chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the full raw text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs supplied at ingest time.
	// At minimum a "source" key identifies where the text came from.
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time
}

// Chunk represents a contiguous span of a document.
// Chunks are the unit of embedding, storage and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	// Deterministic: "<documentID>:<ordinal>".
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Ordinal is the position of this chunk within the document.
	Ordinal int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the vector representation for similarity search.
	// Populated by the embedding gateway before upsert.
	Embedding []float32

	// Metadata is a copy of the parent document's metadata plus
	// chunk_index and total_chunks entries.
	Metadata map[string]any
}

// ChunkID builds the deterministic chunk identifier for a document ordinal.
func ChunkID(documentID string, ordinal int) string {
	return documentID + ":" + strconv.Itoa(ordinal)
}
