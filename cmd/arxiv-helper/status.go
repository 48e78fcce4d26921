package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/embedding"
	"github.com/Micdiane/arxiv-helper/internal/indexer"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusResponse struct {
	Store        store.Stats `json:"store"`
	IndexSize    int         `json:"index_size"`
	IndexVariant string      `json:"index_variant"`
	IndexPath    string      `json:"index_path"`
	NeedsRebuild bool        `json:"needs_rebuild"`
	Model        string      `json:"model"`
	ModelReady   bool        `json:"model_ready"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	counts, err := db.Counts()
	if err != nil {
		exitWithError(ExitError, "reading store stats: %v", err)
	}

	// The backend being down is a reported state here, not a failure.
	provider := embedding.NewOllamaProvider(
		embedding.WithBaseURL(cfg.OllamaURL),
		embedding.WithModel(cfg.EmbeddingModel),
		embedding.WithDimensions(cfg.EmbeddingDims),
	)
	modelReady := provider.Available(cmd.Context()) == nil

	resp := statusResponse{
		Store:        counts,
		IndexVariant: cfg.IndexVariant,
		IndexPath:    cfg.IndexPath,
		Model:        cfg.EmbeddingModel,
		ModelReady:   modelReady,
	}

	mgr, err := indexer.New(db, provider, textSource(cfg), managerOptions(cfg))
	switch {
	case err == nil:
		resp.IndexSize = mgr.Live().Size()
	case errors.Is(err, indexer.ErrRebuildRequired):
		resp.NeedsRebuild = true
	default:
		exitWithError(ExitError, "loading index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Papers:      %d (%d vectorized, %d favorites, %d with PDF)\n",
			resp.Store.Total, resp.Store.Vectorized, resp.Store.Favorites, resp.Store.WithPDF)
		fmt.Printf("Index:       %d vectors (%s) at %s\n", resp.IndexSize, resp.IndexVariant, resp.IndexPath)
		if resp.NeedsRebuild {
			fmt.Println("Index:       NEEDS REBUILD (run 'arxiv-helper rebuild')")
		}
		fmt.Printf("Model:       %s", resp.Model)
		if resp.ModelReady {
			fmt.Println(" (ready)")
		} else {
			fmt.Println(" (unavailable)")
		}
		return nil
	}
	return outputJSON(resp)
}
