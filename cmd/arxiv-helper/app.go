package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/Micdiane/arxiv-helper/internal/config"
	"github.com/Micdiane/arxiv-helper/internal/embedding"
	"github.com/Micdiane/arxiv-helper/internal/fulltext"
	"github.com/Micdiane/arxiv-helper/internal/indexer"
	"github.com/Micdiane/arxiv-helper/internal/search"
	"github.com/Micdiane/arxiv-helper/internal/store"
)

// mustLoadConfig loads configuration or exits.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenStore opens the metadata store or exits.
func mustOpenStore(cfg *config.Config) *store.DB {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		exitWithError(ExitError, "creating data directory: %v", err)
	}
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustNewProvider constructs the embedding backend and verifies the model
// is loadable. Backend failures are fatal at startup, never retried per
// request.
func mustNewProvider(ctx context.Context, cfg *config.Config) embedding.Provider {
	provider := embedding.NewOllamaProvider(
		embedding.WithBaseURL(cfg.OllamaURL),
		embedding.WithModel(cfg.EmbeddingModel),
		embedding.WithDimensions(cfg.EmbeddingDims),
	)
	if err := provider.Available(ctx); err != nil {
		exitWithError(ExitModelUnavailable, "%v\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai", err)
	}
	return provider
}

// textSource builds the embedding text source from configuration.
func textSource(cfg *config.Config) *fulltext.Source {
	return &fulltext.Source{UseFullText: cfg.UseFullText}
}

// managerOptions maps configuration to indexer options.
func managerOptions(cfg *config.Config) indexer.Options {
	return indexer.Options{
		IndexPath:     cfg.IndexPath,
		Variant:       cfg.IndexVariant,
		Dimensions:    cfg.EmbeddingDims,
		ClusterCount:  cfg.ClusterCount,
		ClusterProbes: cfg.ClusterProbes,
		BatchSize:     cfg.BatchSize,
		MaxBatches:    cfg.MaxBatches,
	}
}

// mustNewManager restores the index or exits. When the snapshot requires a
// rebuild, commands other than rebuild refuse to run.
func mustNewManager(db *store.DB, provider embedding.Provider, cfg *config.Config) *indexer.Manager {
	mgr, err := indexer.New(db, provider, textSource(cfg), managerOptions(cfg))
	if err != nil {
		if errors.Is(err, indexer.ErrRebuildRequired) {
			exitWithError(ExitConfigError, "%v\n\nRun 'arxiv-helper rebuild' to regenerate the index.", err)
		}
		exitWithError(ExitError, "loading index: %v", err)
	}
	return mgr
}

// newService wires the search service from its parts.
func newService(db *store.DB, provider embedding.Provider, mgr *indexer.Manager, cfg *config.Config) *search.Service {
	return search.New(db, provider, mgr, textSource(cfg), time.Duration(cfg.QueryTimeout))
}

// metadataService wires a service for commands that only touch the metadata
// store. No embedding backend or index is needed, so listing and keyword
// search work with Ollama down.
func metadataService(db *store.DB, cfg *config.Config) *search.Service {
	return search.New(db, nil, nil, nil, time.Duration(cfg.QueryTimeout))
}
