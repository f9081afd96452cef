package domain

// RetrievedChunk pairs a chunk with its similarity to a query vector.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the cosine similarity in [-1, 1].
	Score float64
}

// Citation references a source chunk whose text was included in the
// generation prompt for an answer.
type Citation struct {
	// DocumentID identifies the source document.
	DocumentID string `json:"document_id"`

	// Ordinal is the chunk position within the document.
	Ordinal int `json:"ordinal"`

	// Score is the similarity score the chunk was retrieved with.
	Score float64 `json:"score"`

	// Snippet is a bounded excerpt of the cited chunk (at most 200
	// characters, ellipsised when cut).
	Snippet string `json:"snippet"`
}

// QueryResult is the outcome of a question answered over the index.
type QueryResult struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`

	// Citations lists the chunks whose text was actually part of the
	// prompt, in the order they appeared in the assembled context.
	Citations []Citation `json:"citations"`
}

// QueryOptions configures a single query.
type QueryOptions struct {
	// K is the number of chunks to retrieve. Zero means the configured
	// default.
	K int

	// Filter restricts retrieval to chunks whose metadata contains all
	// of the given key-value pairs. Nil means no filtering.
	Filter map[string]any
}

// CollectionInfo is a read-only summary of a collection.
type CollectionInfo struct {
	// Name is the collection name.
	Name string `json:"name"`

	// ChunkCount is the number of stored chunks. Zero for an empty or
	// unknown collection.
	ChunkCount int `json:"chunk_count"`

	// VectorDimension is the dimensionality all vectors in the
	// collection share. Zero when the collection holds no vectors.
	VectorDimension int `json:"vector_dimension"`
}
