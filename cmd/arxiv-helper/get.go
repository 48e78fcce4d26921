package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <arxiv-id>",
	Short: "Show one paper's full record",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	p, err := metadataService(db, cfg).Get(args[0])
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	if humanOutput {
		fmt.Printf("%s (v%d)\n", p.ArxivID, p.Version)
		fmt.Printf("Title:      %s\n", p.Title)
		fmt.Printf("Authors:    %s\n", strings.Join(p.Authors, ", "))
		fmt.Printf("Category:   %s\n", p.PrimaryCategory)
		fmt.Printf("Published:  %s\n", p.PublishedDate.Format("2006-01-02"))
		fmt.Printf("URL:        %s\n", p.AbsURL())
		fmt.Printf("Favorite:   %v\n", p.IsFavorite)
		fmt.Printf("Vectorized: %v\n", p.IsVectorized)
		fmt.Printf("\n%s\n", p.Abstract)
		return nil
	}
	return outputJSON(p)
}
