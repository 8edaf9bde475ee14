package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// CheckStats summarizes a manifest that passed the lint.
type CheckStats struct {
	Entries int
	MaxDbi  uint32
}

// Check lints a manifest for CI: exact header, no empty cells, integer
// non-negative dbi values that are unique, start at 0 and have no gaps.
// The first violation is returned as an error naming the offending line
// (1-based, header included).
func Check(path string) (CheckStats, error) {
	var stats CheckStats

	f, err := os.Open(path)
	if err != nil {
		return stats, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return stats, fmt.Errorf("manifest has no header: %w", err)
	}
	if len(header) != len(Columns) {
		return stats, fmt.Errorf("expected header %v, got %v", Columns, header)
	}
	for i, want := range Columns {
		if header[i] != want {
			return stats, fmt.Errorf("expected header %v, got %v", Columns, header)
		}
	}

	seen := make(map[uint32]bool)
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		line++
		if len(rec) != len(Columns) {
			return stats, fmt.Errorf("line %d: expected %d fields, got %d", line, len(Columns), len(rec))
		}
		for i, cell := range rec {
			if cell == "" {
				return stats, fmt.Errorf("line %d: empty %s", line, Columns[i])
			}
		}
		idx, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return stats, fmt.Errorf("line %d: dbi is not an integer: %s", line, rec[0])
		}
		if idx < 0 {
			return stats, fmt.Errorf("line %d: dbi must be >= 0", line)
		}
		if seen[uint32(idx)] {
			return stats, fmt.Errorf("line %d: duplicate dbi %d", line, idx)
		}
		seen[uint32(idx)] = true
		stats.Entries++
	}

	if stats.Entries == 0 {
		return stats, fmt.Errorf("manifest has no entries")
	}

	dbis := make([]uint32, 0, len(seen))
	for d := range seen {
		dbis = append(dbis, d)
	}
	sort.Slice(dbis, func(i, j int) bool { return dbis[i] < dbis[j] })
	if dbis[0] != 0 {
		return stats, fmt.Errorf("dbi 0 entry is required")
	}
	for i := 1; i < len(dbis); i++ {
		if dbis[i] != dbis[i-1]+1 {
			return stats, fmt.Errorf("dbi sequence has a gap between %d and %d", dbis[i-1], dbis[i])
		}
	}
	stats.MaxDbi = dbis[len(dbis)-1]
	return stats, nil
}

// LoadRows reads the manifest strictly into a by-index map, for the drift
// check. Unlike Load, a malformed dbi cell here is an error.
func LoadRows(path string) (map[uint32]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("manifest has no header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	rows := make(map[uint32]Row)
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		idx, err := strconv.ParseUint(get(rec, "dbi"), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid dbi value %q", line, get(rec, "dbi"))
		}
		rows[uint32(idx)] = Row{
			Dbi:         uint32(idx),
			Name:        get(rec, "name"),
			KeyFormat:   get(rec, "key_format"),
			ValueFormat: get(rec, "value_format"),
			Owner:       get(rec, "owner"),
			Status:      get(rec, "status"),
		}
	}
	return rows, nil
}
