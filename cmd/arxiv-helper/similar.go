package main

import (
	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/search"
)

var similarK int

var similarCmd = &cobra.Command{
	Use:   "similar <arxiv-id>",
	Short: "Find papers similar to a stored one",
	Long: `Return the k papers most similar to the given one by embedding
similarity. The paper must already be vectorized; run sync first if it is
not.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().IntVar(&similarK, "k", 10, "Number of results")
	rootCmd.AddCommand(similarCmd)
}

type similarResponse struct {
	Papers  []search.Result `json:"papers"`
	QueryID string          `json:"query_id"`
	Total   int             `json:"total"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	ctx := cmd.Context()
	provider := mustNewProvider(ctx, cfg)
	mgr := mustNewManager(db, provider, cfg)
	svc := newService(db, provider, mgr, cfg)

	results, err := svc.Similar(ctx, args[0], similarK)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	if humanOutput {
		printResultsHuman(results)
		return nil
	}
	if results == nil {
		results = []search.Result{}
	}
	return outputJSON(similarResponse{Papers: results, QueryID: args[0], Total: len(results)})
}
