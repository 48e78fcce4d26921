package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/arxiv"
	"github.com/Micdiane/arxiv-helper/internal/fulltext"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

var (
	fetchCategories []string
	fetchDays       int
	fetchMax        int
	fetchPDFs       bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch recent papers from the arXiv API",
	Long: `Fetch recent paper metadata for the configured categories and store
it locally. Already-known papers are updated in place when a newer version
appears; their favorite flag is preserved.

With --pdfs, PDFs missing from the local cache are downloaded afterwards.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchCategories, "categories", nil, "Categories to fetch (default from config)")
	fetchCmd.Flags().IntVar(&fetchDays, "days", 0, "How many days back to fetch (default from config)")
	fetchCmd.Flags().IntVar(&fetchMax, "max", 0, "Maximum results per category (default from config)")
	fetchCmd.Flags().BoolVar(&fetchPDFs, "pdfs", false, "Download missing PDFs after fetching")
	rootCmd.AddCommand(fetchCmd)
}

type fetchReport struct {
	Fetched    int `json:"fetched"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Unchanged  int `json:"unchanged"`
	Downloaded int `json:"pdfs_downloaded,omitempty"`
	Failed     int `json:"pdfs_failed,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	categories := fetchCategories
	if len(categories) == 0 {
		categories = cfg.ArxivCategories
	}
	days := fetchDays
	if days <= 0 {
		days = cfg.DaysToFetch
	}
	maxResults := fetchMax
	if maxResults <= 0 {
		maxResults = cfg.MaxResults
	}

	ctx := cmd.Context()
	client := arxiv.NewClient()

	var report fetchReport
	for _, cat := range categories {
		if humanOutput {
			fmt.Printf("Fetching %s...\n", cat)
		}
		papers, err := client.FetchCategory(ctx, cat, days, maxResults)
		if err != nil {
			exitWithError(ExitError, "fetching %s: %v", cat, err)
		}
		report.Fetched += len(papers)

		for i := range papers {
			outcome, err := db.Upsert(&papers[i])
			if err != nil {
				exitWithError(ExitError, "storing %s: %v", papers[i].ArxivID, err)
			}
			switch outcome {
			case store.OutcomeCreated:
				report.Created++
			case store.OutcomeUpdated:
				report.Updated++
			default:
				report.Unchanged++
			}
		}
	}

	if fetchPDFs {
		downloaded, failed, err := fulltext.DownloadMissing(ctx, db, cfg.PDFDir)
		if err != nil {
			exitWithError(ExitError, "downloading PDFs: %v", err)
		}
		report.Downloaded = downloaded
		report.Failed = failed
	}

	if humanOutput {
		fmt.Printf("Fetched %d papers: %d new, %d updated, %d unchanged\n",
			report.Fetched, report.Created, report.Updated, report.Unchanged)
		if fetchPDFs {
			fmt.Printf("PDFs: %d downloaded, %d failed\n", report.Downloaded, report.Failed)
		}
		return nil
	}
	return outputJSON(report)
}
