// Package config handles application configuration.
//
// Configuration is read from a YAML file (default ~/.config/arxiv-helper/config.yml
// or the path given with --config), then overridden by environment variables.
// A .env file in the working directory is honored via godotenv, loaded by the
// CLI entry point before any config lookup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index variant names recognized in configuration.
const (
	VariantExact     = "exact"
	VariantClustered = "clustered"
)

// Duration is a time.Duration that reads from YAML as a string like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config enumerates every recognized option.
type Config struct {
	// Storage locations. DatabasePath, IndexPath and PDFDir default to
	// subpaths of DataDir when left empty.
	DataDir      string `yaml:"data_dir"`
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
	PDFDir       string `yaml:"pdf_dir"`

	// Embedding backend.
	EmbeddingModel string `yaml:"embedding_model"`
	OllamaURL      string `yaml:"ollama_url"`
	EmbeddingDims  int    `yaml:"embedding_dimensions"`
	UseFullText    bool   `yaml:"use_full_text"`

	// Vector index.
	IndexVariant  string `yaml:"index_variant"` // exact or clustered
	ClusterCount  int    `yaml:"cluster_count"`
	ClusterProbes int    `yaml:"cluster_probes"`

	// Sync.
	BatchSize  int `yaml:"batch_size"`
	MaxBatches int `yaml:"max_batches"` // batches per sync invocation, 0 = drain

	// Query handling.
	QueryTimeout Duration `yaml:"query_timeout"`

	// arXiv fetching.
	ArxivCategories []string `yaml:"arxiv_categories"`
	MaxResults      int      `yaml:"max_results"`
	DaysToFetch     int      `yaml:"days_to_fetch"`

	// HTTP API.
	ServerAddr string `yaml:"server_addr"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		DataDir:         "./data",
		EmbeddingModel:  "all-minilm:l6-v2",
		OllamaURL:       "http://localhost:11434",
		EmbeddingDims:   384,
		UseFullText:     false,
		IndexVariant:    VariantExact,
		ClusterCount:    100,
		ClusterProbes:   4,
		BatchSize:       50,
		MaxBatches:      0,
		QueryTimeout:    Duration(30 * time.Second),
		ArxivCategories: []string{"cs.AI", "cs.CL", "cs.CV", "cs.LG"},
		MaxResults:      100,
		DaysToFetch:     100,
		ServerAddr:      "127.0.0.1:8000",
	}
}

// DefaultPath returns the default config file location.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/arxiv-helper/config.yml.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "arxiv-helper", "config.yml")
}

// Load reads configuration from the given path, applies environment
// overrides, fills derived paths and validates the result. A missing file is
// not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDerived fills paths that default to subpaths of DataDir.
func (c *Config) fillDerived() {
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "papers.db")
	}
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(c.DataDir, "index", "papers.index")
	}
	if c.PDFDir == "" {
		c.PDFDir = filepath.Join(c.DataDir, "pdf")
	}
}

// Validate checks option values that have a closed domain.
func (c *Config) Validate() error {
	switch c.IndexVariant {
	case VariantExact, VariantClustered:
	default:
		return fmt.Errorf("invalid index_variant %q (valid: %s, %s)",
			c.IndexVariant, VariantExact, VariantClustered)
	}
	if c.EmbeddingDims <= 0 {
		return fmt.Errorf("embedding_dimensions must be positive, got %d", c.EmbeddingDims)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.IndexVariant == VariantClustered && c.ClusterCount <= 0 {
		return fmt.Errorf("cluster_count must be positive, got %d", c.ClusterCount)
	}
	return nil
}

// applyEnv overrides options from environment variables.
func (c *Config) applyEnv() {
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.IndexPath, "INDEX_PATH")
	setString(&c.PDFDir, "PDF_DIR")
	setString(&c.EmbeddingModel, "EMBEDDING_MODEL")
	setString(&c.OllamaURL, "OLLAMA_URL")
	setInt(&c.EmbeddingDims, "EMBEDDING_DIMENSIONS")
	setBool(&c.UseFullText, "USE_FULL_TEXT")
	setString(&c.IndexVariant, "INDEX_VARIANT")
	setInt(&c.ClusterCount, "CLUSTER_COUNT")
	setInt(&c.ClusterProbes, "CLUSTER_PROBES")
	setInt(&c.BatchSize, "BATCH_SIZE")
	setInt(&c.MaxBatches, "MAX_BATCHES")
	setDuration(&c.QueryTimeout, "QUERY_TIMEOUT")
	setInt(&c.MaxResults, "MAX_RESULTS_PER_QUERY")
	setInt(&c.DaysToFetch, "DAYS_TO_FETCH")
	setString(&c.ServerAddr, "SERVER_ADDR")

	if v := os.Getenv("ARXIV_CATEGORIES"); v != "" {
		parts := strings.Split(v, ",")
		cats := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cats = append(cats, p)
			}
		}
		if len(cats) > 0 {
			c.ArxivCategories = cats
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "t", "true", "yes":
			*dst = true
		case "0", "f", "false", "no":
			*dst = false
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
