// Command studio runs batch preset edits against local image files.
package main

import (
	"fmt"
	"os"

	"github.com/phambaophuc/product-studio/internal/config"
	"github.com/phambaophuc/product-studio/internal/services/preset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile     string
	presetsFile string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Batch AI product photo editing",
	Long: `studio applies one editing preset to a batch of product photos and
bundles the edited images into a zip archive.

The Gemini API key is read from API_KEY (or GEMINI_API_KEY) in the
environment or the env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load")
	rootCmd.PersistentFlags().StringVar(&presetsFile, "presets-file", "", "YAML preset catalog (overrides PRESETS_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log service activity to stderr")

	rootCmd.AddCommand(presetsCmd, editCmd, eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger is silent unless --verbose is set; progress goes to stderr
// separately.
func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if presetsFile != "" {
		cfg.Presets.File = presetsFile
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*preset.Catalog, error) {
	catalog := preset.NewCatalog()
	if cfg.Presets.File != "" {
		if err := catalog.LoadFile(cfg.Presets.File); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}
