package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func chunk(docID string, ordinal int, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(docID, ordinal),
		DocumentID: docID,
		Ordinal:    ordinal,
		Content:    "content of " + domain.ChunkID(docID, ordinal),
		Embedding:  embedding,
		Metadata:   map[string]any{"source": docID + ".txt"},
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, []float32{1, 0})}))
	require.NoError(t, s.Close())

	// Data and schema version survive a reopen.
	s, err = NewStore(dir)
	require.NoError(t, err)
	defer s.Close()

	info, err := s.Info(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, info.ChunkCount)
	assert.Equal(t, 2, info.VectorDimension)
}

func TestUpsert_ReplacesDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{
		chunk("doc-1", 0, []float32{1, 0}),
		chunk("doc-1", 1, []float32{0, 1}),
		chunk("doc-1", 2, []float32{1, 1}),
	}))

	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{
		chunk("doc-1", 0, []float32{1, 0}),
	}))

	info, err := s.Info(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, info.ChunkCount)
}

func TestUpsert_RejectsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, []float32{1, 0})}))

	err := s.Upsert(ctx, "docs", "doc-2", []domain.Chunk{chunk("doc-2", 0, []float32{1, 0, 0})})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// A different collection may use a different dimension.
	require.NoError(t, s.Upsert(ctx, "other", "doc-2", []domain.Chunk{chunk("doc-2", 0, []float32{1, 0, 0})}))
}

func TestUpsert_RejectsMissingEmbedding(t *testing.T) {
	s := newTestStore(t)

	err := s.Upsert(context.Background(), "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, nil)})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{
		chunk("doc-1", 0, []float32{1, 0}),
		chunk("doc-1", 1, []float32{0, 1}),
		chunk("doc-1", 2, []float32{1, 1}),
	}))

	results, err := s.Search(ctx, "docs", []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc-1:0", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "doc-1:2", results[1].Chunk.ID)
}

func TestSearch_MetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := chunk("doc-1", 0, []float32{1, 0})
	c.Metadata = map[string]any{"source": "a.txt", "chunk_index": 0}
	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{c}))

	results, err := s.Search(ctx, "docs", []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Chunk.Metadata["source"])

	// Filters still match after JSON widened the int to float64.
	results, err = s.Search(ctx, "docs", []float32{1, 0}, 1, map[string]any{"chunk_index": 0})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_Filter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, []float32{1, 0})}))
	require.NoError(t, s.Upsert(ctx, "docs", "doc-2", []domain.Chunk{chunk("doc-2", 0, []float32{1, 0})}))

	results, err := s.Search(ctx, "docs", []float32{1, 0}, 10, map[string]any{"source": "doc-2.txt"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-2:0", results[0].Chunk.ID)
}

func TestSearch_EmptyCollection(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Search(context.Background(), "missing", []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_InvalidInputs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Search(ctx, "docs", []float32{1}, 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Search(ctx, "docs", nil, 5, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, []float32{1, 0})}))
	_, err = s.Search(ctx, "docs", []float32{1, 0, 0}, 5, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, []float32{1, 0})}))
	require.NoError(t, s.DeleteCollection(ctx, "docs"))

	info, err := s.Info(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionInfo{Name: "docs"}, info)

	// Idempotent.
	require.NoError(t, s.DeleteCollection(ctx, "docs"))

	// Dimension is no longer pinned after a clear.
	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, []float32{1, 0, 0})}))
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	embedding := []float32{0.25, -1.5, 3.375, 0}
	require.NoError(t, s.Upsert(ctx, "docs", "doc-1", []domain.Chunk{chunk("doc-1", 0, embedding)}))

	results, err := s.Search(ctx, "docs", embedding, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, embedding, results[0].Chunk.Embedding)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}
