package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"witgen/internal/drift"
	"witgen/internal/manifest"
)

var (
	flagCheckManifest string
	flagCheckHeader   string
	flagCheckRoot     string
)

// checkCmd groups the CI gates.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "CI checks over the manifest and generated artifacts",
}

var checkManifestCmd = &cobra.Command{
	Use:   "manifest <manifest.csv>",
	Short: "Lint the dbi manifest",
	Long: `Rejects a manifest whose header is wrong, whose rows have empty cells,
or whose dbi column is not a unique, gap-free sequence starting at 0.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckManifest,
}

var checkDriftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Verify runner dbi usage against the manifest and generated constants",
	Long: `Every dbi referenced by runner sources or docs must have an active
manifest row, and every generated SAP_WIT_DBI_* constant must match its
manifest row by index and name.`,
	RunE: runCheckDrift,
}

func init() {
	checkDriftCmd.Flags().StringVar(&flagCheckManifest, "manifest", "", "manifest CSV path (overrides config)")
	checkDriftCmd.Flags().StringVar(&flagCheckHeader, "header", "", "generated header path (overrides config)")
	checkDriftCmd.Flags().StringVar(&flagCheckRoot, "root", "", "repo root to scan (overrides config)")

	checkCmd.AddCommand(checkManifestCmd)
	checkCmd.AddCommand(checkDriftCmd)
}

func runCheckManifest(cmd *cobra.Command, args []string) error {
	stats, err := manifest.Check(args[0])
	if err != nil {
		return fmt.Errorf("dbi-manifest: FAIL: %w", err)
	}
	fmt.Printf("dbi-manifest: PASS (entries=%d max_dbi=%d file=%s)\n",
		stats.Entries, stats.MaxDbi, args[0])
	return nil
}

func runCheckDrift(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifestPath := cfg.Paths.Manifest
	headerPath := cfg.Paths.Header
	loc := drift.Locations{
		Root:      cfg.Drift.Root,
		RunnerDir: cfg.Drift.RunnerDir,
		DocsDir:   cfg.Drift.DocsDir,
		DocGlob:   cfg.Drift.DocGlob,
	}
	if flagCheckManifest != "" {
		manifestPath = flagCheckManifest
	}
	if flagCheckHeader != "" {
		headerPath = flagCheckHeader
	}
	if flagCheckRoot != "" {
		loc.Root = flagCheckRoot
	}

	report, err := drift.Check(manifestPath, headerPath, loc)
	if err != nil {
		return fmt.Errorf("runner-dbi-status: FAIL: %w", err)
	}
	fmt.Printf("runner-dbi-status: PASS (runtime_dbis=%d doc_dbis=%d required_active=%d)\n",
		report.RuntimeDbis, report.DocDbis, report.RequiredActive)
	return nil
}
