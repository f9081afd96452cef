// Package cli implements the command-line driving adapter.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/coretext-ai/corpusqa/internal/core/ports/driving"
	"github.com/coretext-ai/corpusqa/internal/logger"
)

// Services injected by main before Execute runs.
var (
	ingestService     driving.IngestService
	queryService      driving.QueryService
	collectionService driving.CollectionService
)

// Defaults injected by main from the loaded configuration.
var (
	version           = "dev"
	defaultCollection = "default"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "corpusqa",
	Short: "Ask questions over your own documents",
	Long: `corpusqa indexes local documents into a vector store and answers
questions about them with citations back to the source passages.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the driving-port implementations.
func SetServices(ingest driving.IngestService, query driving.QueryService, collection driving.CollectionService) {
	ingestService = ingest
	queryService = query
	collectionService = collection
}

// SetDefaults injects build and configuration defaults.
func SetDefaults(v, collection string) {
	if v != "" {
		version = v
	}
	if collection != "" {
		defaultCollection = collection
	}
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
