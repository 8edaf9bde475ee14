// Package drift cross-checks the manifest and the generated constants
// against the runtime code and docs that consume them. It is the CI gate
// that keeps curator status from rotting: anything the runner references
// must be marked active, and every generated constant must still agree
// with its manifest row.
package drift

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"witgen/internal/manifest"
)

const macroPrefix = "SAP_WIT_DBI_"

var (
	macroDefRE = regexp.MustCompile(`(?m)^\s*#define\s+(SAP_WIT_DBI_[A-Z0-9_]+)\s+([0-9]+)u?\s*$`)
	macroUseRE = regexp.MustCompile(`\bSAP_WIT_DBI_[A-Z0-9_]+\b`)
	docDbiRE   = regexp.MustCompile(`\bDBI\s*([0-9]+)\b`)
)

// Locations tells Check where the consuming code lives, relative to Root.
type Locations struct {
	Root      string
	RunnerDir string // e.g. "src/runner"
	DocsDir   string // e.g. "docs"
	DocGlob   string // e.g. "RUNNER_*.md"
}

// Report summarizes a passing drift check.
type Report struct {
	RuntimeDbis    int
	DocDbis        int
	RequiredActive int
}

// Check verifies two properties: every dbi referenced by runner sources or
// docs has an active manifest row, and every generated constant matches a
// manifest row 1:1 by index and derived name. The first violation aborts.
func Check(manifestPath, headerPath string, loc Locations) (Report, error) {
	var report Report

	runnerDir := filepath.Join(loc.Root, loc.RunnerDir)
	docsDir := filepath.Join(loc.Root, loc.DocsDir)
	for _, dir := range []string{runnerDir, docsDir} {
		if _, err := os.Stat(dir); err != nil {
			// A misconfigured root must fail loudly, not pass with
			// zero usage.
			return report, fmt.Errorf("path not found: %s", dir)
		}
	}

	rows, err := manifest.LoadRows(manifestPath)
	if err != nil {
		return report, err
	}

	macros, err := loadMacros(headerPath)
	if err != nil {
		return report, err
	}
	if len(macros) == 0 {
		return report, fmt.Errorf("no %s* macros found in %s", macroPrefix, headerPath)
	}

	runtimeUsed, err := runtimeUsage(runnerDir, macros)
	if err != nil {
		return report, err
	}
	docUsed, err := docUsage(docsDir, loc.DocGlob)
	if err != nil {
		return report, err
	}

	required := make(map[uint32]bool, len(runtimeUsed)+len(docUsed))
	for d := range runtimeUsed {
		required[d] = true
	}
	for d := range docUsed {
		required[d] = true
	}
	for _, d := range sortedKeys(required) {
		row, ok := rows[d]
		if !ok {
			return report, fmt.Errorf("DBI %d is referenced by runner code/docs but missing in manifest", d)
		}
		if strings.ToLower(strings.TrimSpace(row.Status)) != manifest.StatusActive {
			return report, fmt.Errorf(
				"DBI %d (%s) is referenced by runner code/docs but has status %q; expected %q",
				d, row.Name, row.Status, manifest.StatusActive)
		}
	}

	names := make([]string, 0, len(macros))
	for name := range macros {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d := macros[name]
		row, ok := rows[d]
		if !ok {
			return report, fmt.Errorf("%s=%d missing from manifest", name, d)
		}
		derived := strings.ToLower(strings.TrimPrefix(name, macroPrefix))
		if derived != row.Name {
			return report, fmt.Errorf("%s name mismatch: macro implies %q, manifest has %q",
				name, derived, row.Name)
		}
	}

	report.RuntimeDbis = len(runtimeUsed)
	report.DocDbis = len(docUsed)
	report.RequiredActive = len(required)
	return report, nil
}

// loadMacros parses the generated header for dbi constant definitions.
func loadMacros(path string) (map[string]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	macros := make(map[string]uint32)
	for _, m := range macroDefRE.FindAllStringSubmatch(string(data), -1) {
		idx, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			continue
		}
		macros[m[1]] = uint32(idx)
	}
	return macros, nil
}

// runtimeUsage collects the dbi indices of known macros appearing anywhere
// in the runner's C sources and headers.
func runtimeUsage(dir string, macros map[string]uint32) (map[uint32]bool, error) {
	used := make(map[uint32]bool)
	for _, pattern := range []string{"*.c", "*.h"} {
		paths, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		sort.Strings(paths)
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			for _, token := range macroUseRE.FindAllString(string(data), -1) {
				if idx, ok := macros[token]; ok {
					used[idx] = true
				}
			}
		}
	}
	return used, nil
}

// docUsage collects "DBI <n>" mentions from the runner docs.
func docUsage(dir, glob string) (map[uint32]bool, error) {
	used := make(map[uint32]bool)
	paths, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, m := range docDbiRE.FindAllStringSubmatch(string(data), -1) {
			idx, err := strconv.ParseUint(m[1], 10, 32)
			if err != nil {
				continue
			}
			used[uint32(idx)] = true
		}
	}
	return used, nil
}

func sortedKeys(set map[uint32]bool) []uint32 {
	keys := make([]uint32, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
