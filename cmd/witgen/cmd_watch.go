package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"witgen/internal/compiler"
	"witgen/internal/watch"
)

// watchCmd reruns generation whenever the WIT source changes.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate artifacts whenever the WIT schema changes",
	Long: `Watches the configured WIT source and reruns generation after each
save, with debouncing. Generation errors are logged; the watcher keeps
running so the next save retries. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagWit, "wit", "", "input WIT file (overrides config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyGenerateFlags(cfg)

	// One synchronous run first so a broken schema is reported
	// immediately instead of on the first save.
	if _, err := compiler.Run(cfg, logger); err != nil {
		return fmt.Errorf("wit-schema: FAIL: %w", err)
	}

	w, err := watch.New(cfg.Paths.Wit, func() error {
		_, err := compiler.Run(cfg, logger)
		return err
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("watching %s (Ctrl-C to stop)\n", cfg.Paths.Wit)

	<-ctx.Done()
	w.Stop()

	stats := w.GetStats()
	fmt.Printf("watch stopped (runs=%d errors=%d)\n", stats.Runs, stats.Errors)
	return nil
}
