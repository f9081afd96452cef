package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coretext-ai/corpusqa/internal/chunker"
	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driving"
	"github.com/coretext-ai/corpusqa/internal/gateway"
	"github.com/coretext-ai/corpusqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService chunks, embeds and stores documents.
// It is stateless between calls; all persistence goes through the
// vector store.
type IngestService struct {
	splitter *chunker.Splitter
	embedder *gateway.EmbeddingGateway
	store    driven.VectorStore
}

// NewIngestService creates a new ingest service.
func NewIngestService(splitter *chunker.Splitter, embedder *gateway.EmbeddingGateway, store driven.VectorStore) *IngestService {
	return &IngestService{
		splitter: splitter,
		embedder: embedder,
		store:    store,
	}
}

// Ingest writes the document into the collection and returns the
// number of chunks stored.
//
// The write is all-or-nothing: chunks reach the store only after every
// one of them embedded successfully, and the store replaces the
// document's previous chunk set atomically.
func (s *IngestService) Ingest(ctx context.Context, collection string, doc domain.Document) (int, error) {
	if strings.TrimSpace(collection) == "" {
		return 0, fmt.Errorf("ingest: collection name is empty: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return 0, fmt.Errorf("ingest: document content is empty: %w", domain.ErrInvalidInput)
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	chunks := s.splitter.Split(doc)
	logger.Debug("ingest %s: %d chunks (max %d chars, overlap %d)",
		doc.ID, len(chunks), s.splitter.MaxChunkSize(), s.splitter.Overlap())

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", doc.ID, err)
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := s.store.Upsert(ctx, collection, doc.ID, chunks); err != nil {
		return 0, fmt.Errorf("ingest %s: %w", doc.ID, err)
	}

	logger.Info("ingested document %s into %s: %d chunks", doc.ID, collection, len(chunks))
	return len(chunks), nil
}
