package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coretext-ai/corpusqa/internal/loaders"
)

var (
	ingestCollection string
	ingestJSON       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Index documents into a collection",
	Long: `Reads the given files, splits them into chunks, embeds the chunks
and stores them in the vector index. Re-ingesting a file replaces its
previous chunks.

Supported file types: .txt, .md, .csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (default from config)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

type ingestResult struct {
	File   string `json:"file"`
	Chunks int    `json:"chunks,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	collection := ingestCollection
	if collection == "" {
		collection = defaultCollection
	}

	ctx := cmd.Context()
	results := make([]ingestResult, 0, len(args))
	failed := 0

	for _, path := range args {
		doc, err := loaders.Load(path)
		if err != nil {
			results = append(results, ingestResult{File: path, Error: err.Error()})
			failed++
			continue
		}

		n, err := ingestService.Ingest(ctx, collection, doc)
		if err != nil {
			results = append(results, ingestResult{File: path, Error: err.Error()})
			failed++
			continue
		}
		results = append(results, ingestResult{File: path, Chunks: n})
	}

	if ingestJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	} else {
		for _, r := range results {
			if r.Error != "" {
				cmd.Printf("  %s: FAILED: %s\n", r.File, r.Error)
				continue
			}
			cmd.Printf("  %s: %d chunks\n", r.File, r.Chunks)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
