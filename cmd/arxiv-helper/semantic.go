package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/search"
)

var semanticK int

var semanticCmd = &cobra.Command{
	Use:   "semantic <query>",
	Short: "Semantic search over embedded papers",
	Long: `Embed the query and return the k nearest papers from the vector
index, ranked by cosine similarity. Requires the embedding backend and at
least one synced paper.`,
	Args: cobra.ExactArgs(1),
	RunE: runSemantic,
}

func init() {
	semanticCmd.Flags().IntVar(&semanticK, "k", 10, "Number of results")
	rootCmd.AddCommand(semanticCmd)
}

type semanticResponse struct {
	Papers []search.Result `json:"papers"`
	Query  string          `json:"query"`
	Total  int             `json:"total"`
}

func runSemantic(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	ctx := cmd.Context()
	provider := mustNewProvider(ctx, cfg)
	mgr := mustNewManager(db, provider, cfg)
	svc := newService(db, provider, mgr, cfg)

	results, err := svc.Semantic(ctx, args[0], semanticK)
	if err != nil {
		exitWithError(exitCodeFor(err), "semantic search failed: %v", err)
	}

	if humanOutput {
		printResultsHuman(results)
		return nil
	}
	if results == nil {
		results = []search.Result{}
	}
	return outputJSON(semanticResponse{Papers: results, Query: args[0], Total: len(results)})
}

// printResultsHuman prints scored results with their similarity.
func printResultsHuman(results []search.Result) {
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Paper.ArxivID)
		fmt.Printf("   %s\n", truncateString(r.Paper.Title, SearchTitleMaxLen))
		fmt.Printf("   %s (%s)\n\n", formatAuthorsShort(r.Paper.Authors, 3), r.Paper.PublishedDate.Format("2006-01-02"))
	}
}
