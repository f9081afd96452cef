// Package pgvector provides a Postgres-backed vector store using the
// pgvector extension. Ranking uses the cosine distance operator over an
// exact scan; similarity is reported as 1 - distance.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coretext-ai/corpusqa/internal/adapters/driven/vectorstore"
	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a pgvector implementation of driven.VectorStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and prepares the schema.
// The server must have the pgvector extension available.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// ensureSchema creates the extension and tables when missing.
func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS collections (
			name       TEXT PRIMARY KEY,
			dimension  INTEGER NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			seq         BIGSERIAL PRIMARY KEY,
			id          TEXT NOT NULL,
			collection  TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
			document_id TEXT NOT NULL,
			ordinal     INTEGER NOT NULL,
			content     TEXT NOT NULL,
			embedding   VECTOR NOT NULL,
			metadata    JSONB NOT NULL DEFAULT 'null',
			UNIQUE (collection, document_id, ordinal)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(collection, document_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("preparing schema: %w", errors.Join(domain.ErrIndexUnavailable, err))
		}
	}
	return nil
}

// Upsert replaces all chunks for (collection, documentID) with the
// given set in one transaction. Row locking on the collection row
// serialises concurrent replaces of the same document.
func (s *Store) Upsert(ctx context.Context, coll, documentID string, chunks []domain.Chunk) error {
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var stored int
	err = tx.QueryRow(ctx,
		"SELECT dimension FROM collections WHERE name = $1 FOR UPDATE", coll).Scan(&stored)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx,
			"INSERT INTO collections (name, dimension) VALUES ($1, $2)", coll, dimension); err != nil {
			return fmt.Errorf("creating collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
		}
		stored = dimension
	case err != nil:
		return fmt.Errorf("reading collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
	}

	if dimension != 0 && stored != 0 && stored != dimension {
		return fmt.Errorf("collection %s stores %d-dimensional vectors, got %d: %w",
			coll, stored, dimension, domain.ErrInvalidInput)
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM chunks WHERE collection = $1 AND document_id = $2", coll, documentID); err != nil {
		return fmt.Errorf("deleting stale chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO chunks (id, collection, document_id, ordinal, content, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5, $6::vector, $7)
		`, chunk.ID, coll, chunk.DocumentID, chunk.Ordinal, chunk.Content,
			vectorLiteral(chunk.Embedding), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, errors.Join(domain.ErrIndexUnavailable, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	return nil
}

// Search ranks chunks by cosine distance in the database.
func (s *Store) Search(ctx context.Context, coll string, query []float32, k int, filter map[string]any) ([]domain.RetrievedChunk, error) {
	var dimension int
	err := s.pool.QueryRow(ctx,
		"SELECT dimension FROM collections WHERE name = $1", coll).Scan(&dimension)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reading collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
	}

	if err := vectorstore.ValidateQuery(query, k, dimension); err != nil {
		return nil, err
	}

	sql := `
		SELECT id, document_id, ordinal, content, metadata,
		       1 - (embedding <=> $2::vector) AS similarity
		FROM chunks
		WHERE collection = $1
	`
	args := []any{coll, vectorLiteral(query)}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("marshalling filter: %w", err)
		}
		sql += " AND metadata @> $3"
		args = append(args, string(filterJSON))
	}

	// seq as secondary key keeps equal scores in ingestion order.
	sql += fmt.Sprintf(" ORDER BY embedding <=> $2::vector, seq LIMIT %d", k)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	defer rows.Close()

	results := []domain.RetrievedChunk{}
	for rows.Next() {
		var chunk domain.Chunk
		var metadataJSON []byte
		var score float64

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Ordinal,
			&chunk.Content, &metadataJSON, &score); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", errors.Join(domain.ErrIndexUnavailable, err))
		}
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}

		results = append(results, domain.RetrievedChunk{Chunk: chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}

	return results, nil
}

// DeleteCollection removes the collection and its chunks. Idempotent.
func (s *Store) DeleteCollection(ctx context.Context, coll string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM collections WHERE name = $1", coll); err != nil {
		return fmt.Errorf("deleting collection: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	return nil
}

// Info summarises the collection; zeroes when absent.
func (s *Store) Info(ctx context.Context, coll string) (domain.CollectionInfo, error) {
	info := domain.CollectionInfo{Name: coll}

	err := s.pool.QueryRow(ctx,
		"SELECT dimension FROM collections WHERE name = $1", coll).Scan(&info.VectorDimension)
	if errors.Is(err, pgx.ErrNoRows) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("reading collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
	}

	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = $1", coll).Scan(&info.ChunkCount)
	if err != nil {
		return info, fmt.Errorf("counting chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}

	return info, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// vectorLiteral renders a vector in pgvector's text format: [1,2,3].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
