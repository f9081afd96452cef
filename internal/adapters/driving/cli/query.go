package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

var (
	queryCollection string
	queryK          int
	queryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question over a collection",
	Long: `Retrieves the passages most similar to the question and generates
an answer grounded in them, with citations back to the sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryCollection, "collection", "c", "", "collection to query (default from config)")
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	collection := queryCollection
	if collection == "" {
		collection = defaultCollection
	}

	result, err := queryService.Ask(cmd.Context(), collection, args[0], domain.QueryOptions{K: queryK})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(result.Answer)
	if len(result.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range result.Citations {
			cmd.Printf("  [%d] %s#%d (%.2f)\n", i+1, c.DocumentID, c.Ordinal, c.Score)
		}
	}
	return nil
}
