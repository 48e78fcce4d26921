// Package main provides the arxiv-helper CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// configPath is the config file path from --config.
var configPath string

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	// .env in the working directory overrides nothing, it only fills
	// unset environment variables.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arxiv-helper",
	Short: "Browse, search and curate arXiv papers",
	Long: `arxiv-helper maintains a local corpus of arXiv paper metadata with
keyword and semantic search.

Papers are fetched from the arXiv API into a SQLite store; a background
sync embeds their abstracts (or extracted full text) into a vector index
for nearest-neighbor queries. All commands output JSON by default for easy
integration with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.config/arxiv-helper/config.yml)")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
