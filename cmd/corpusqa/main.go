package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/coretext-ai/corpusqa/internal/adapters/driven/config/file"
	ollamaembed "github.com/coretext-ai/corpusqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/coretext-ai/corpusqa/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/coretext-ai/corpusqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/coretext-ai/corpusqa/internal/adapters/driven/llm/openai"
	"github.com/coretext-ai/corpusqa/internal/adapters/driven/vectorstore/memory"
	"github.com/coretext-ai/corpusqa/internal/adapters/driven/vectorstore/pgvector"
	"github.com/coretext-ai/corpusqa/internal/adapters/driven/vectorstore/sqlite"
	"github.com/coretext-ai/corpusqa/internal/adapters/driving/cli"
	"github.com/coretext-ai/corpusqa/internal/chunker"
	"github.com/coretext-ai/corpusqa/internal/config"
	"github.com/coretext-ai/corpusqa/internal/core/ports/driven"
	"github.com/coretext-ai/corpusqa/internal/core/services"
	"github.com/coretext-ai/corpusqa/internal/gateway"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local .env files are a convenience for API keys; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CORPUSQA_CONFIG"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	embedSvc, err := newEmbeddingService(cfg.Embedding)
	if err != nil {
		return err
	}
	defer embedSvc.Close()

	llmSvc, err := newLLMService(cfg.Generation)
	if err != nil {
		return err
	}
	defer llmSvc.Close()

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return err
	}

	gwCfg := gateway.Config{
		RetryMaxAttempts:  cfg.Gateway.RetryMaxAttempts,
		RetryBackoffBase:  cfg.Gateway.RetryBackoffBase,
		Timeout:           cfg.Gateway.Timeout,
		ConcurrencyLimit:  cfg.Gateway.ConcurrencyLimit,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		Burst:             cfg.Gateway.Burst,
	}
	embedder := gateway.NewEmbeddingGateway(embedSvc, gwCfg, cfg.Embedding.BatchSize)
	generator := gateway.NewGenerationGateway(llmSvc, gwCfg)

	splitter := chunker.New(
		chunker.WithMaxChunkSize(cfg.Chunking.MaxChunkSize),
		chunker.WithOverlap(cfg.Chunking.ChunkOverlap),
	)

	cli.SetServices(
		services.NewIngestService(splitter, embedder, store),
		services.NewQAService(store, embedder, generator, prompts, services.QAConfig{
			RetrievalK:     cfg.Retrieval.K,
			MaxContextSize: cfg.Retrieval.MaxContextSize,
			MaxTokens:      cfg.Generation.MaxTokens,
			Temperature:    cfg.Generation.Temperature,
		}),
		services.NewCollectionService(store),
	)
	cli.SetDefaults(version, cfg.Collection)

	return cli.Execute(ctx)
}

func newStore(ctx context.Context, cfg config.StorageConfig) (driven.VectorStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.NewStore(cfg.Path)
	case config.DriverPostgres:
		return pgvector.NewStore(ctx, cfg.DSN)
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newEmbeddingService(cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case config.ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func newLLMService(cfg config.GenerationConfig) (driven.LLMService, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	case config.ProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
