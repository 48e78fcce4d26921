package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/indexer"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from scratch",
	Long: `Re-embed every paper in the store into a fresh index, replacing the
persisted one. Use this after changing the embedding model, dimension or
index variant, or when the index file is corrupt.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	ctx := cmd.Context()
	provider := mustNewProvider(ctx, cfg)

	// A snapshot that needs rebuilding is exactly what this command fixes,
	// so that condition is not fatal here.
	mgr, err := indexer.New(db, provider, textSource(cfg), managerOptions(cfg))
	if err != nil && !errors.Is(err, indexer.ErrRebuildRequired) {
		exitWithError(ExitError, "loading index: %v", err)
	}

	if humanOutput {
		mgr.SetProgressReporter(indexer.ProgressFunc(func(current, total int) {
			fmt.Printf("\rEmbedding %d/%d", current, total)
			if current == total {
				fmt.Println()
			}
		}))
	}

	stats, err := mgr.Rebuild(ctx)
	if err != nil {
		exitWithError(exitCodeFor(err), "rebuild failed: %v", err)
	}

	if humanOutput {
		fmt.Printf("Rebuilt index with %d papers (%d skipped), took %s\n",
			stats.Embedded, stats.Skipped, stats.Duration.Round(time.Millisecond))
		return nil
	}
	return outputJSON(stats)
}
