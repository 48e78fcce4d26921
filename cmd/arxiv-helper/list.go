package main

import (
	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/paper"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

var (
	listSkip      int
	listLimit     int
	listSort      string
	listFavorites bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored papers",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listSkip, "skip", 0, "Number of papers to skip")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum papers to show")
	listCmd.Flags().StringVar(&listSort, "sort", store.SortDate, "Sort order (date)")
	listCmd.Flags().BoolVar(&listFavorites, "favorites", false, "Only show favorited papers")
	rootCmd.AddCommand(listCmd)
}

type listResponse struct {
	Papers []paper.Paper `json:"papers"`
	Total  int           `json:"total"`
	Skip   int           `json:"skip"`
	Limit  int           `json:"limit"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	svc := metadataService(db, cfg)

	var (
		papers []paper.Paper
		total  int
		err    error
	)
	if listFavorites {
		papers, total, err = svc.Favorites(listSkip, listLimit)
	} else {
		papers, total, err = svc.List(listSkip, listLimit, listSort)
	}
	if err != nil {
		exitWithError(exitCodeFor(err), "listing papers: %v", err)
	}

	if humanOutput {
		printPapersHuman(papers)
		return nil
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return outputJSON(listResponse{Papers: papers, Total: total, Skip: listSkip, Limit: listLimit})
}
