package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Micdiane/arxiv-helper/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON HTTP API",
	Long: `Serve the paper store and vector index over a JSON HTTP API. Searches
run against the index snapshot loaded at startup; run sync in a separate
process to extend the index and restart the server to pick the result up.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenStore(cfg)
	defer db.Close()

	ctx := cmd.Context()
	provider := mustNewProvider(ctx, cfg)
	mgr := mustNewManager(db, provider, cfg)
	svc := newService(db, provider, mgr, cfg)

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	srv := server.New(svc, logger)
	if err := srv.ListenAndServe(addr); err != nil {
		exitWithError(ExitError, "server failed: %v", err)
	}
	return nil
}
