package main

import (
	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/paper"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

var (
	searchSkip  int
	searchLimit int
	searchSort  string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search over titles and abstracts",
	Long: `Search stored papers by case-insensitive substring match on title and
abstract. Sort "relevance" ranks title matches above abstract matches;
"date" orders by publication date descending.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchSkip, "skip", 0, "Number of results to skip")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results to show")
	searchCmd.Flags().StringVar(&searchSort, "sort", store.SortRelevance, "Sort order (relevance or date)")
	rootCmd.AddCommand(searchCmd)
}

type searchResponse struct {
	Papers []paper.Paper `json:"papers"`
	Query  string        `json:"query"`
	Total  int           `json:"total"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	papers, total, err := metadataService(db, cfg).Keyword(args[0], searchSkip, searchLimit, searchSort)
	if err != nil {
		exitWithError(exitCodeFor(err), "search failed: %v", err)
	}

	if humanOutput {
		printPapersHuman(papers)
		return nil
	}
	if papers == nil {
		papers = []paper.Paper{}
	}
	return outputJSON(searchResponse{Papers: papers, Query: args[0], Total: total})
}
