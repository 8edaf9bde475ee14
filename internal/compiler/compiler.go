// Package compiler runs the witgen pipeline: scan the WIT source, resolve
// dbi entries, reconcile the manifest, and emit the generated C artifacts.
//
// The pipeline is strictly sequential and computes everything in memory
// before touching disk; any failure before the write phase leaves every
// previously generated artifact intact.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"witgen/internal/cgen"
	"witgen/internal/config"
	"witgen/internal/dbi"
	"witgen/internal/manifest"
	"witgen/internal/wit"
)

// Summary reports what a run produced, for the CLI status line.
type Summary struct {
	Records     int
	Entries     int
	Skipped     int
	OpaqueCells int
}

// Run executes the full pipeline against cfg. Outputs are written only
// after every stage has succeeded: manifest first, then header, then
// source, one file at a time.
func Run(cfg *config.Config, logger *zap.Logger) (*Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	src, err := os.ReadFile(cfg.Paths.Wit)
	if err != nil {
		return nil, fmt.Errorf("read wit source: %w", err)
	}

	records, skipped := wit.ScanRecords(string(src))
	for _, frag := range skipped {
		logger.Debug("skipped unparseable field line",
			zap.String("record", frag.Record),
			zap.String("fragment", frag.Fragment))
	}

	entries, err := dbi.Resolve(records)
	if err != nil {
		return nil, err
	}

	prior, err := manifest.Load(cfg.Paths.Manifest)
	if err != nil {
		return nil, err
	}
	rows := manifest.Reconcile(entries, prior, cfg.Schema.Namespace)

	opaque := opaqueCells(entries, logger)

	header := cgen.EmitHeader(entries)
	source := cgen.EmitSource(entries, cfg.Paths.Header)

	// Write phase. Nothing above has touched disk.
	if err := manifest.Write(cfg.Paths.Manifest, rows); err != nil {
		return nil, err
	}
	if err := writeFile(cfg.Paths.Header, header); err != nil {
		return nil, err
	}
	if err := writeFile(cfg.Paths.Source, source); err != nil {
		return nil, err
	}

	logger.Info("schema generation complete",
		zap.Int("records", len(records)),
		zap.Int("entries", len(entries)),
		zap.String("manifest", cfg.Paths.Manifest),
		zap.String("header", cfg.Paths.Header),
		zap.String("source", cfg.Paths.Source))

	return &Summary{
		Records:     len(records),
		Entries:     len(entries),
		Skipped:     len(skipped),
		OpaqueCells: opaque,
	}, nil
}

// opaqueCells counts fields that fall back to the opaque placeholder,
// once per distinct record name so the count matches the deduplicated
// header the emitter writes.
func opaqueCells(entries []dbi.Entry, logger *zap.Logger) int {
	opaque := 0
	seen := make(map[string]bool)
	for _, e := range entries {
		for _, rec := range []wit.Record{e.Key, e.Value} {
			if seen[rec.Name] {
				continue
			}
			seen[rec.Name] = true
			if n := cgen.LayoutFor(rec).OpaqueCells(); n > 0 {
				opaque += n
				logger.Warn("record has fields with no known layout",
					zap.String("record", rec.Name),
					zap.Int("opaque_cells", n))
			}
		}
	}
	return opaque
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
