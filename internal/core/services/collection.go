package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driving"
	"github.com/coretext-ai/corpusqa/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// CollectionService is a validated pass-through to the vector store's
// administrative operations.
type CollectionService struct {
	store driven.VectorStore
}

// NewCollectionService creates a new collection service.
func NewCollectionService(store driven.VectorStore) *CollectionService {
	return &CollectionService{store: store}
}

// Info returns chunk count and vector dimension for the collection.
func (s *CollectionService) Info(ctx context.Context, collection string) (domain.CollectionInfo, error) {
	if strings.TrimSpace(collection) == "" {
		return domain.CollectionInfo{}, fmt.Errorf("collection info: name is empty: %w", domain.ErrInvalidInput)
	}
	return s.store.Info(ctx, collection)
}

// Clear removes all chunks from the collection. Idempotent.
func (s *CollectionService) Clear(ctx context.Context, collection string) error {
	if strings.TrimSpace(collection) == "" {
		return fmt.Errorf("collection clear: name is empty: %w", domain.ErrInvalidInput)
	}

	if err := s.store.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("collection clear %s: %w", collection, err)
	}

	logger.Info("cleared collection %s", collection)
	return nil
}
