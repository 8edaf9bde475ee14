// Package cgen emits the canonical-ABI C artifacts for resolved dbi
// entries: packed layout structs, load-time validators, and the per-index
// schema table.
package cgen

import (
	"fmt"

	"witgen/internal/wit"
)

// CellClass distinguishes recognized primitives from the opaque
// placeholder an unknown type token falls back to. The fallback is a
// schema-evolution shim, not an error; callers count opaque cells to
// detect drift.
type CellClass int

const (
	Known CellClass = iota
	Opaque
)

// Cell is one emitted C struct member.
type Cell struct {
	Decl  string // full member declaration, e.g. "uint32_t key_len;"
	Size  int    // bytes contributed to the packed struct
	Class CellClass
}

// Layout is the fixed binary layout of one record: cells in declared field
// order, packed, no padding.
type Layout struct {
	Cells []Cell
	Size  int
}

// OpaqueCells counts fields that fell back to the opaque placeholder.
func (l Layout) OpaqueCells() int {
	n := 0
	for _, c := range l.Cells {
		if c.Class == Opaque {
			n++
		}
	}
	return n
}

// cellsFor maps one WIT field to its canonical ABI cells. Variable-length
// payloads live out-of-band, so text and byte types become an
// offset/length pair rather than inline bytes.
func cellsFor(f wit.Field) []Cell {
	name := f.CName()
	switch f.Type {
	case "s8", "u8", "bool":
		return []Cell{{Decl: fmt.Sprintf("uint8_t %s;", name), Size: 1}}
	case "s16", "u16":
		return []Cell{{Decl: fmt.Sprintf("uint16_t %s;", name), Size: 2}}
	case "s32", "u32":
		return []Cell{{Decl: fmt.Sprintf("uint32_t %s;", name), Size: 4}}
	case "s64", "u64", "timestamp":
		return []Cell{{Decl: fmt.Sprintf("uint64_t %s;", name), Size: 8}}
	case "f32":
		return []Cell{{Decl: fmt.Sprintf("float %s;", name), Size: 4}}
	case "f64", "score":
		return []Cell{{Decl: fmt.Sprintf("double %s;", name), Size: 8}}
	case "utf8", "bytes", "string":
		return []Cell{
			{Decl: fmt.Sprintf("uint32_t %s_offset;", name), Size: 4},
			{Decl: fmt.Sprintf("uint32_t %s_len;", name), Size: 4},
		}
	}
	// Arrays and component variants land here until they grow a real
	// layout.
	return []Cell{{
		Decl:  fmt.Sprintf("uint64_t %s_unknown_layout;", name),
		Size:  8,
		Class: Opaque,
	}}
}

// LayoutFor maps a record's fields, in order, to its packed layout.
func LayoutFor(rec wit.Record) Layout {
	var l Layout
	for _, f := range rec.Fields {
		cells := cellsFor(f)
		l.Cells = append(l.Cells, cells...)
		for _, c := range cells {
			l.Size += c.Size
		}
	}
	return l
}
