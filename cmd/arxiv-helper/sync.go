package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/indexer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Embed pending papers into the vector index",
	Long: `Embed every paper that is not yet in the vector index and persist the
updated index. The run is incremental and crash-safe: interrupting it loses at
most the current batch, and the next sync picks up where it left off.

Papers whose text cannot be obtained are skipped for this run and retried on
the next one.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	ctx := cmd.Context()
	provider := mustNewProvider(ctx, cfg)
	mgr := mustNewManager(db, provider, cfg)

	if humanOutput {
		mgr.SetProgressReporter(indexer.ProgressFunc(func(current, total int) {
			fmt.Printf("\rEmbedding %d/%d", current, total)
			if current == total {
				fmt.Println()
			}
		}))
	}

	stats, err := mgr.Sync(ctx)
	if err != nil {
		exitWithError(exitCodeFor(err), "sync failed: %v", err)
	}

	if humanOutput {
		fmt.Printf("Embedded %d papers (%d skipped) in %d batches, index size %d, took %s\n",
			stats.Embedded, stats.Skipped, stats.Batches, stats.IndexSize, stats.Duration.Round(time.Millisecond))
		return nil
	}
	return outputJSON(stats)
}
