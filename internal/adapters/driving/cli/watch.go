package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/coretext-ai/corpusqa/internal/watch"
)

var watchCollection string

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest files as they change",
	Long: `Watches the given directory and ingests supported files whenever
they are created or modified. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchCollection, "collection", "c", "", "target collection (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	collection := watchCollection
	if collection == "" {
		collection = defaultCollection
	}

	w := watch.New(ingestService, collection, args[0])
	if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
