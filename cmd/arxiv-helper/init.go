package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Micdiane/arxiv-helper/internal/config"
)

var initWriteConfig bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and database",
	Long: `Initialize the data directory, the metadata database and the index
directory. Safe to run repeatedly; existing data is never touched.

With --write-config, a config file with the current effective settings is
written to the --config path (or the default location) unless one exists.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "Write the effective config to the config file path")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	for _, dir := range []string{cfg.DataDir, filepath.Dir(cfg.IndexPath), cfg.PDFDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			exitWithError(ExitError, "creating %s: %v", dir, err)
		}
	}

	db := mustOpenStore(cfg)
	db.Close()

	configFile := ""
	if initWriteConfig {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if path == "" {
			exitWithError(ExitConfigError, "cannot determine config file location")
		}
		if _, err := os.Stat(path); err == nil {
			exitWithError(ExitConfigError, "config file already exists: %s", path)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			exitWithError(ExitError, "creating config directory: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			exitWithError(ExitError, "writing config: %v", err)
		}
		configFile = path
	}

	if humanOutput {
		fmt.Printf("Initialized data directory: %s\n", cfg.DataDir)
		fmt.Printf("Database: %s\n", cfg.DatabasePath)
		fmt.Printf("Index: %s\n", cfg.IndexPath)
		if configFile != "" {
			fmt.Printf("Config written: %s\n", configFile)
		}
		return nil
	}

	return outputJSON(map[string]string{
		"data_dir":    cfg.DataDir,
		"database":    cfg.DatabasePath,
		"index":       cfg.IndexPath,
		"config_file": configFile,
	})
}
