package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var collectionJSON bool

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect and manage collections",
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show chunk count and vector dimension for a collection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCollectionInfo,
}

var collectionClearCmd = &cobra.Command{
	Use:   "clear [name]",
	Short: "Remove all chunks from a collection",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCollectionClear,
}

func init() {
	collectionInfoCmd.Flags().BoolVar(&collectionJSON, "json", false, "output as JSON")
	collectionCmd.AddCommand(collectionInfoCmd)
	collectionCmd.AddCommand(collectionClearCmd)
	rootCmd.AddCommand(collectionCmd)
}

func collectionArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultCollection
}

func runCollectionInfo(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	name := collectionArg(args)
	info, err := collectionService.Info(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("collection info failed: %w", err)
	}

	if collectionJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal info: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Collection: %s\n", info.Name)
	cmd.Printf("  Chunks:    %d\n", info.ChunkCount)
	cmd.Printf("  Dimension: %d\n", info.VectorDimension)
	return nil
}

func runCollectionClear(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return errors.New("collection service not configured")
	}

	name := collectionArg(args)
	if err := collectionService.Clear(cmd.Context(), name); err != nil {
		return fmt.Errorf("collection clear failed: %w", err)
	}

	cmd.Printf("Cleared collection %s.\n", name)
	return nil
}
