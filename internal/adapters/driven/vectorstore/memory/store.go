// Package memory provides an in-process vector store with exact
// brute-force cosine search. It backs the "memory" storage driver and
// the test suites.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/coretext-ai/corpusqa/internal/adapters/driven/vectorstore"
	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// collection holds chunks in ingestion order with a pinned dimension.
type collection struct {
	dimension int
	chunks    []domain.Chunk
}

// Store is an in-memory implementation of driven.VectorStore.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection

	// docMu serialises replace-upserts per (collection, document) key so
	// a reader never observes a half-replaced chunk set.
	docMu   sync.Mutex
	docKeys map[string]*sync.Mutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
		docKeys:     make(map[string]*sync.Mutex),
	}
}

// lockDocument acquires the per-document mutex for the given key.
func (s *Store) lockDocument(coll, documentID string) *sync.Mutex {
	key := coll + "\x00" + documentID

	s.docMu.Lock()
	m, ok := s.docKeys[key]
	if !ok {
		m = &sync.Mutex{}
		s.docKeys[key] = m
	}
	s.docMu.Unlock()

	m.Lock()
	return m
}

// Upsert replaces all chunks for (collection, documentID) with the
// given set.
func (s *Store) Upsert(ctx context.Context, coll, documentID string, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dimension := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding: %w", chunk.ID, domain.ErrInvalidInput)
		}
		if dimension == 0 {
			dimension = len(chunk.Embedding)
		} else if len(chunk.Embedding) != dimension {
			return fmt.Errorf("chunk %s has %d dimensions, batch has %d: %w",
				chunk.ID, len(chunk.Embedding), dimension, domain.ErrInvalidInput)
		}
	}

	lock := s.lockDocument(coll, documentID)
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[coll]
	if !ok {
		c = &collection{dimension: dimension}
		s.collections[coll] = c
	}

	if len(chunks) > 0 && c.dimension != 0 && c.dimension != dimension {
		return fmt.Errorf("collection %s stores %d-dimensional vectors, got %d: %w",
			coll, c.dimension, dimension, domain.ErrInvalidInput)
	}
	if c.dimension == 0 {
		c.dimension = dimension
	}

	kept := c.chunks[:0]
	for _, chunk := range c.chunks {
		if chunk.DocumentID != documentID {
			kept = append(kept, chunk)
		}
	}
	c.chunks = append(kept, chunks...)

	return nil
}

// Search returns the k most similar chunks in the collection.
func (s *Store) Search(ctx context.Context, coll string, query []float32, k int, filter map[string]any) ([]domain.RetrievedChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.collections[coll]
	dimension := 0
	if c != nil {
		dimension = c.dimension
	}

	if err := vectorstore.ValidateQuery(query, k, dimension); err != nil {
		return nil, err
	}

	if c == nil {
		return []domain.RetrievedChunk{}, nil
	}

	candidates := make([]domain.RetrievedChunk, 0, len(c.chunks))
	for _, chunk := range c.chunks {
		if filter != nil && !vectorstore.MatchesFilter(chunk.Metadata, filter) {
			continue
		}
		candidates = append(candidates, domain.RetrievedChunk{
			Chunk: chunk,
			Score: vectorstore.Cosine(query, chunk.Embedding),
		})
	}

	return vectorstore.RankTopK(candidates, k), nil
}

// DeleteCollection removes the collection. No-op when absent.
func (s *Store) DeleteCollection(ctx context.Context, coll string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, coll)
	return nil
}

// Info summarises the collection; zeroes when absent.
func (s *Store) Info(ctx context.Context, coll string) (domain.CollectionInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.CollectionInfo{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info := domain.CollectionInfo{Name: coll}
	if c, ok := s.collections[coll]; ok {
		info.ChunkCount = len(c.chunks)
		info.VectorDimension = c.dimension
	}
	return info, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}
