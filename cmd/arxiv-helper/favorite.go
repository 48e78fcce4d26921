package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var favoriteCmd = &cobra.Command{
	Use:   "favorite <arxiv-id>",
	Short: "Toggle a paper's favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavorite,
}

func init() {
	rootCmd.AddCommand(favoriteCmd)
}

type favoriteResponse struct {
	ArxivID    string `json:"arxiv_id"`
	IsFavorite bool   `json:"is_favorite"`
}

func runFavorite(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	fav, err := metadataService(db, cfg).ToggleFavorite(args[0])
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	if humanOutput {
		if fav {
			fmt.Printf("Added %s to favorites\n", args[0])
		} else {
			fmt.Printf("Removed %s from favorites\n", args[0])
		}
		return nil
	}
	return outputJSON(favoriteResponse{ArxivID: args[0], IsFavorite: fav})
}
