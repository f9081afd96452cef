// Package sqlite provides the default persistent vector store.
//
// Chunks and their vectors live in a single SQLite database (WAL mode)
// with vectors encoded as little-endian float32 BLOBs. Similarity
// search is an exact scan: every vector in the collection is compared
// with cosine similarity in Go. No approximate index is involved.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/coretext-ai/corpusqa/internal/adapters/driven/vectorstore"
	"github.com/coretext-ai/corpusqa/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/coretext-ai/corpusqa/internal/core/domain"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a SQLite-backed implementation of driven.VectorStore.
type Store struct {
	db   *sql.DB
	path string

	// docMu serialises replace-upserts per (collection, document) key.
	docMu   sync.Mutex
	docKeys map[string]*sync.Mutex
}

// NewStore creates a vector store at the specified data directory.
// If dataDir is empty, defaults to ~/.corpusqa/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".corpusqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode lets similarity searches proceed concurrently with
	// unrelated writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		docKeys: make(map[string]*sync.Mutex),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
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
// given set in one transaction.
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

	lock := s.lockDocument(coll, documentID)
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	defer tx.Rollback() //nolint:errcheck

	stored, err := s.ensureCollection(ctx, tx, coll, dimension)
	if err != nil {
		return err
	}
	if dimension != 0 && stored != 0 && stored != dimension {
		return fmt.Errorf("collection %s stores %d-dimensional vectors, got %d: %w",
			coll, stored, dimension, domain.ErrInvalidInput)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection = ? AND document_id = ?",
		coll, documentID); err != nil {
		return fmt.Errorf("deleting stale chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, collection, document_id, ordinal, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, coll, chunk.DocumentID, chunk.Ordinal,
			chunk.Content, float32SliceToBytes(chunk.Embedding), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, errors.Join(domain.ErrIndexUnavailable, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	return nil
}

// ensureCollection returns the collection's pinned dimension, creating
// the row (with the batch dimension) when it does not exist yet.
func (s *Store) ensureCollection(ctx context.Context, tx *sql.Tx, coll string, dimension int) (int, error) {
	var stored int
	err := tx.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", coll).Scan(&stored)
	switch {
	case err == nil:
		return stored, nil
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name, dimension) VALUES (?, ?)", coll, dimension); err != nil {
			return 0, fmt.Errorf("creating collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
		}
		return dimension, nil
	default:
		return 0, fmt.Errorf("reading collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
	}
}

// Search scans the collection and returns the k most similar chunks.
func (s *Store) Search(ctx context.Context, coll string, query []float32, k int, filter map[string]any) ([]domain.RetrievedChunk, error) {
	var dimension int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", coll).Scan(&dimension)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
	}

	if err := vectorstore.ValidateQuery(query, k, dimension); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, ordinal, content, embedding, metadata
		FROM chunks WHERE collection = ?
		ORDER BY seq
	`, coll)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	defer rows.Close()

	var candidates []domain.RetrievedChunk
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		var metadataJSON string

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Ordinal,
			&chunk.Content, &embeddingBlob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", errors.Join(domain.ErrIndexUnavailable, err))
		}

		if metadataJSON != jsonNull {
			if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
			}
		}

		if filter != nil && !vectorstore.MatchesFilter(chunk.Metadata, filter) {
			continue
		}

		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		candidates = append(candidates, domain.RetrievedChunk{
			Chunk: chunk,
			Score: vectorstore.Cosine(query, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}

	if candidates == nil {
		return []domain.RetrievedChunk{}, nil
	}
	return vectorstore.RankTopK(candidates, k), nil
}

// DeleteCollection removes the collection and its chunks. Idempotent.
func (s *Store) DeleteCollection(ctx context.Context, coll string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE collection = ?", coll); err != nil {
		return fmt.Errorf("deleting chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", coll); err != nil {
		return fmt.Errorf("deleting collection: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}
	return nil
}

// Info summarises the collection; zeroes when absent.
func (s *Store) Info(ctx context.Context, coll string) (domain.CollectionInfo, error) {
	info := domain.CollectionInfo{Name: coll}

	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", coll).Scan(&info.VectorDimension)
	if errors.Is(err, sql.ErrNoRows) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("reading collection %s: %w", coll, errors.Join(domain.ErrIndexUnavailable, err))
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE collection = ?", coll).Scan(&info.ChunkCount)
	if err != nil {
		return info, fmt.Errorf("counting chunks: %w", errors.Join(domain.ErrIndexUnavailable, err))
	}

	return info, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
