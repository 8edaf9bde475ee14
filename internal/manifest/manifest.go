// Package manifest reads and writes the dbi manifest CSV. The manifest is
// the one artifact curators hand-edit: owner and status are theirs, the
// structural columns are regenerated every run.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"witgen/internal/dbi"
)

// Columns is the required manifest header, in order.
var Columns = []string{"dbi", "name", "key_format", "value_format", "owner", "status"}

const (
	DefaultOwner  = "runtime"
	StatusActive  = "active"
	StatusPlanned = "planned"
)

// Row is one manifest line.
type Row struct {
	Dbi         uint32
	Name        string
	KeyFormat   string
	ValueFormat string
	Owner       string
	Status      string
}

// Prior is the curator-relevant view of a previously written row.
type Prior struct {
	Name   string
	Owner  string
	Status string
}

// Load reads a prior manifest into a by-index map. A missing file is an
// empty prior, not an error. Rows with a non-integer dbi or an empty name
// are skipped so that a half-edited manifest cannot poison regeneration;
// empty owner/status cells fall back to the defaults.
func Load(path string) (map[uint32]Prior, error) {
	prior := make(map[uint32]Prior)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prior, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return prior, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest %s: %w", path, err)
		}
		idx, err := strconv.ParseUint(get(rec, "dbi"), 10, 32)
		if err != nil {
			continue
		}
		name := get(rec, "name")
		if name == "" {
			continue
		}
		owner := get(rec, "owner")
		if owner == "" {
			owner = DefaultOwner
		}
		status := get(rec, "status")
		if status == "" {
			status = StatusPlanned
		}
		prior[uint32(idx)] = Prior{Name: name, Owner: owner, Status: status}
	}
	return prior, nil
}

// Reconcile merges the freshly resolved entries with curator metadata from
// the prior manifest. Owner and status carry forward only when the prior
// row's name equals the newly derived name; a rename is a new logical
// entry and intentionally starts over with defaults. (Keying on a stable
// synthetic id instead would survive renames, but the manifest format has
// no column for one; see DESIGN.md.)
func Reconcile(entries []dbi.Entry, prior map[uint32]Prior, namespace string) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		name := strings.ReplaceAll(e.Label, "-", "_")
		owner := DefaultOwner
		status := StatusPlanned
		if e.Index == 0 {
			status = StatusActive
		}
		if p, ok := prior[e.Index]; ok && p.Name == name {
			owner = p.Owner
			status = p.Status
		}
		rows = append(rows, Row{
			Dbi:         e.Index,
			Name:        name,
			KeyFormat:   namespace + ":" + e.Key.Name,
			ValueFormat: namespace + ":" + e.Value.Name,
			Owner:       owner,
			Status:      status,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Dbi < rows[j].Dbi })
	return rows
}

// Write overwrites the manifest wholesale, rows in ascending dbi order.
func Write(path string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("write manifest %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	for _, row := range rows {
		rec := []string{
			strconv.FormatUint(uint64(row.Dbi), 10),
			row.Name,
			row.KeyFormat,
			row.ValueFormat,
			row.Owner,
			row.Status,
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return fmt.Errorf("write manifest %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}
