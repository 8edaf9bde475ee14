package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"witgen/internal/compiler"
	"witgen/internal/config"
)

var (
	flagWit      string
	flagManifest string
	flagHeader   string
	flagSource   string
)

// generateCmd runs the full pipeline once.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Derive the dbi manifest and C metadata from the WIT schema",
	Long: `Scans the WIT source for dbi record declarations, resolves them into
key/value schema pairs, reconciles the CSV manifest (preserving curator
owner/status for unrenamed entries), and emits the generated C header and
source. On any resolution error nothing is written.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagWit, "wit", "", "input WIT file (overrides config)")
	generateCmd.Flags().StringVar(&flagManifest, "manifest", "", "output CSV manifest path (overrides config)")
	generateCmd.Flags().StringVar(&flagHeader, "header", "", "output generated C header path (overrides config)")
	generateCmd.Flags().StringVar(&flagSource, "source", "", "output generated C source path (overrides config)")
}

// applyGenerateFlags overlays explicit flags onto the loaded config.
func applyGenerateFlags(cfg *config.Config) {
	if flagWit != "" {
		cfg.Paths.Wit = flagWit
	}
	if flagManifest != "" {
		cfg.Paths.Manifest = flagManifest
	}
	if flagHeader != "" {
		cfg.Paths.Header = flagHeader
	}
	if flagSource != "" {
		cfg.Paths.Source = flagSource
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyGenerateFlags(cfg)

	sum, err := compiler.Run(cfg, logger)
	if err != nil {
		return fmt.Errorf("wit-schema: FAIL: %w", err)
	}

	fmt.Printf("wit-schema: PASS (entries=%d records=%d skipped=%d wit=%s manifest=%s header=%s)\n",
		sum.Entries, sum.Records, sum.Skipped, cfg.Paths.Wit, cfg.Paths.Manifest, cfg.Paths.Header)
	return nil
}
