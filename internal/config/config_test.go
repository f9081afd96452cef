package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `
collection = "notes"

[chunking]
max_chunk_size = 512

[retrieval]
k = 3

[embedding]
provider = "ollama"
model = "all-minilm"

[storage]
driver = "memory"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "notes", cfg.Collection)
	assert.Equal(t, 512, cfg.Chunking.MaxChunkSize)
	assert.Equal(t, 3, cfg.Retrieval.K)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)

	// Untouched sections keep their defaults.
	assert.Equal(t, 200, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, 3, cfg.Gateway.RetryMaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)
}

func TestLoad_RejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "collection = [broken")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty collection", func(c *Config) { c.Collection = "  " }},
		{"chunk size zero", func(c *Config) { c.Chunking.MaxChunkSize = 0 }},
		{"chunk size too large", func(c *Config) { c.Chunking.MaxChunkSize = 65537 }},
		{"negative overlap", func(c *Config) { c.Chunking.ChunkOverlap = -1 }},
		{"overlap not below chunk size", func(c *Config) {
			c.Chunking.MaxChunkSize = 100
			c.Chunking.ChunkOverlap = 100
		}},
		{"k zero", func(c *Config) { c.Retrieval.K = 0 }},
		{"k too large", func(c *Config) { c.Retrieval.K = 1001 }},
		{"context size zero", func(c *Config) { c.Retrieval.MaxContextSize = 0 }},
		{"batch size zero", func(c *Config) { c.Embedding.BatchSize = 0 }},
		{"batch size too large", func(c *Config) { c.Embedding.BatchSize = 2049 }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "bedrock" }},
		{"unknown generation provider", func(c *Config) { c.Generation.Provider = "" }},
		{"negative max tokens", func(c *Config) { c.Generation.MaxTokens = -1 }},
		{"retry attempts zero", func(c *Config) { c.Gateway.RetryMaxAttempts = 0 }},
		{"retry attempts too large", func(c *Config) { c.Gateway.RetryMaxAttempts = 11 }},
		{"backoff zero", func(c *Config) { c.Gateway.RetryBackoffBase = 0 }},
		{"timeout zero", func(c *Config) { c.Gateway.Timeout = 0 }},
		{"concurrency zero", func(c *Config) { c.Gateway.ConcurrencyLimit = 0 }},
		{"concurrency too large", func(c *Config) { c.Gateway.ConcurrencyLimit = 257 }},
		{"rate zero", func(c *Config) { c.Gateway.RequestsPerSecond = 0 }},
		{"burst zero", func(c *Config) { c.Gateway.Burst = 0 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "dynamo" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_PostgresWithDSN(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = DriverPostgres
	cfg.Storage.DSN = "postgres://localhost/corpusqa"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	path := writeConfig(t, `
[retrieval]
k = 0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval.k")
}
