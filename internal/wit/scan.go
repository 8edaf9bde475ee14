// Package wit extracts typed record declarations from WIT schema source.
//
// The scan is a permissive extraction pass, not a strict compiler: a body
// line that does not parse as a field is reported as a SkippedFragment and
// dropped, never promoted to a field the author did not write.
package wit

import (
	"regexp"
	"strings"
)

var (
	// An optional single-line ///@refine(...) annotation immediately
	// preceding a record block binds the expression to that record.
	recordBlockRE = regexp.MustCompile(
		`(?m)(?:^[ \t]*///\s*@refine\(([^)]+)\)\s*\n)?[ \t]*record\s+([a-z0-9][a-z0-9-]*)\s*\{([^}]*)\}`)

	// One field per line: "<name>: <type-token>," with an optional
	// generic suffix on the type. The suffix is kept verbatim and never
	// interpreted here.
	fieldLineRE = regexp.MustCompile(`^\s*([a-z0-9-]+)\s*:\s*([a-z0-9-]+(?:<[^>]+>)?)\s*,`)
)

// Field is one typed member of a record.
type Field struct {
	Name string
	Type string
}

// CName returns the field name as a C identifier.
func (f Field) CName() string {
	return strings.ReplaceAll(f.Name, "-", "_")
}

// Record is one parsed record declaration.
type Record struct {
	Name   string
	Refine string // boolean expression over field names, empty if absent
	Fields []Field
}

// CName returns the record name as a C identifier.
func (r Record) CName() string {
	return strings.ReplaceAll(r.Name, "-", "_")
}

// SkippedFragment is a non-blank record body line that did not parse as a
// field. Callers can log or assert on lossy extraction.
type SkippedFragment struct {
	Record   string
	Fragment string
}

// ScanRecords scans WIT source text for record blocks and returns them in
// source order, together with any body fragments the field grammar did not
// accept. Records that do not follow the dbi naming convention are still
// returned; downstream filtering decides what participates.
func ScanRecords(src string) ([]Record, []SkippedFragment) {
	var records []Record
	var skipped []SkippedFragment

	for _, m := range recordBlockRE.FindAllStringSubmatch(src, -1) {
		refine := strings.TrimSpace(m[1])
		name := m[2]
		body := m[3]

		var fields []Field
		for _, line := range strings.Split(body, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			fm := fieldLineRE.FindStringSubmatch(line)
			if fm == nil {
				skipped = append(skipped, SkippedFragment{
					Record:   name,
					Fragment: strings.TrimSpace(line),
				})
				continue
			}
			fields = append(fields, Field{Name: fm[1], Type: fm[2]})
		}

		records = append(records, Record{Name: name, Refine: refine, Fields: fields})
	}

	return records, skipped
}
