// Package config loads and validates the application configuration
// from a TOML file, with defaults applied for everything left unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage driver names accepted in the config file.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Backend provider names accepted in the config file.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config is the full application configuration.
type Config struct {
	Collection string           `toml:"collection"`
	Chunking   ChunkingConfig   `toml:"chunking"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Generation GenerationConfig `toml:"generation"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Storage    StorageConfig    `toml:"storage"`
}

// ChunkingConfig controls how documents are split.
type ChunkingConfig struct {
	MaxChunkSize int `toml:"max_chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// RetrievalConfig controls similarity search and context assembly.
type RetrievalConfig struct {
	K              int `toml:"k"`
	MaxContextSize int `toml:"max_context_size"`
}

// EmbeddingConfig selects and tunes the embedding backend.
// API keys come from the environment, never from this file.
type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	Dimensions int    `toml:"dimensions"`
	BatchSize  int    `toml:"batch_size"`
}

// GenerationConfig selects and tunes the answer-generation backend.
type GenerationConfig struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// GatewayConfig tunes retry, timeout and throttling behaviour shared by
// all backend calls.
type GatewayConfig struct {
	RetryMaxAttempts  int           `toml:"retry_max_attempts"`
	RetryBackoffBase  time.Duration `toml:"retry_backoff_base"`
	Timeout           time.Duration `toml:"timeout"`
	ConcurrencyLimit  int           `toml:"concurrency_limit"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Burst             int           `toml:"burst"`
}

// StorageConfig selects the vector store driver.
type StorageConfig struct {
	Driver string `toml:"driver"`
	// Path is the data directory for the sqlite driver.
	Path string `toml:"path"`
	// DSN is the connection string for the postgres driver.
	DSN string `toml:"dsn"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Collection: "default",
		Chunking: ChunkingConfig{
			MaxChunkSize: 1000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			K:              5,
			MaxContextSize: 8000,
		},
		Embedding: EmbeddingConfig{
			Provider:  ProviderOpenAI,
			BatchSize: 64,
		},
		Generation: GenerationConfig{
			Provider:    ProviderOpenAI,
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		Gateway: GatewayConfig{
			RetryMaxAttempts:  3,
			RetryBackoffBase:  500 * time.Millisecond,
			Timeout:           60 * time.Second,
			ConcurrencyLimit:  4,
			RequestsPerSecond: 8.0,
			Burst:             8,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.corpusqa/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".corpusqa", "config.toml"), nil
}

// Load reads the config file at path, overlaying it on the defaults.
// A missing file is not an error; the defaults are returned as-is.
// The result is validated either way.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file yet, run on defaults.
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails fast on any out-of-range value so a bad file is
// rejected before any backend or store is touched.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Collection) == "" {
		return fmt.Errorf("collection must not be empty")
	}
	if c.Chunking.MaxChunkSize < 1 || c.Chunking.MaxChunkSize > 65536 {
		return fmt.Errorf("chunking.max_chunk_size must be in [1, 65536], got %d", c.Chunking.MaxChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.MaxChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, max_chunk_size), got %d", c.Chunking.ChunkOverlap)
	}
	if c.Retrieval.K < 1 || c.Retrieval.K > 1000 {
		return fmt.Errorf("retrieval.k must be in [1, 1000], got %d", c.Retrieval.K)
	}
	if c.Retrieval.MaxContextSize < 1 {
		return fmt.Errorf("retrieval.max_context_size must be positive, got %d", c.Retrieval.MaxContextSize)
	}
	if c.Embedding.BatchSize < 1 || c.Embedding.BatchSize > 2048 {
		return fmt.Errorf("embedding.batch_size must be in [1, 2048], got %d", c.Embedding.BatchSize)
	}
	if err := validProvider(c.Embedding.Provider); err != nil {
		return fmt.Errorf("embedding.provider: %w", err)
	}
	if err := validProvider(c.Generation.Provider); err != nil {
		return fmt.Errorf("generation.provider: %w", err)
	}
	if c.Generation.MaxTokens < 0 {
		return fmt.Errorf("generation.max_tokens must not be negative, got %d", c.Generation.MaxTokens)
	}
	if c.Gateway.RetryMaxAttempts < 1 || c.Gateway.RetryMaxAttempts > 10 {
		return fmt.Errorf("gateway.retry_max_attempts must be in [1, 10], got %d", c.Gateway.RetryMaxAttempts)
	}
	if c.Gateway.RetryBackoffBase <= 0 {
		return fmt.Errorf("gateway.retry_backoff_base must be positive, got %s", c.Gateway.RetryBackoffBase)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive, got %s", c.Gateway.Timeout)
	}
	if c.Gateway.ConcurrencyLimit < 1 || c.Gateway.ConcurrencyLimit > 256 {
		return fmt.Errorf("gateway.concurrency_limit must be in [1, 256], got %d", c.Gateway.ConcurrencyLimit)
	}
	if c.Gateway.RequestsPerSecond <= 0 {
		return fmt.Errorf("gateway.requests_per_second must be positive, got %g", c.Gateway.RequestsPerSecond)
	}
	if c.Gateway.Burst < 1 {
		return fmt.Errorf("gateway.burst must be positive, got %d", c.Gateway.Burst)
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, postgres, memory, got %q", c.Storage.Driver)
	}

	return nil
}

func validProvider(p string) error {
	switch p {
	case ProviderOpenAI, ProviderOllama:
		return nil
	default:
		return fmt.Errorf("must be one of openai, ollama, got %q", p)
	}
}
