// Package dbi groups parsed WIT records into the per-index key/value
// schema pairs the storage engine addresses by dbi number.
package dbi

import (
	"regexp"
	"strconv"
	"strings"

	"witgen/internal/wit"
)

// recordNameRE is the dbi naming convention: dbi<index>-<label>-<kind>.
var recordNameRE = regexp.MustCompile(`^dbi([0-9]+)-([a-z0-9][a-z0-9-]*)-(key|value)$`)

// Entry is one resolved dbi: an index, its label, and the key/value record
// pair. Entries are immutable once resolved.
type Entry struct {
	Index uint32
	Label string
	Key   wit.Record
	Value wit.Record
}

// ConstName returns the canonical uppercase form of the label, used to
// name the generated numeric constant.
func (e Entry) ConstName() string {
	return strings.ToUpper(strings.ReplaceAll(e.Label, "-", "_"))
}

// slot accumulates the records seen for one index. Indices are contiguous
// from zero by contract, so slots live in an index-addressed vector rather
// than a sparse map; holes left in the vector are exactly the gaps the
// sequence check reports.
type slot struct {
	seen     bool
	label    string
	key      *wit.Record
	value    *wit.Record
	hasKey   bool
	hasValue bool
}

// Resolve filters records matching the dbi naming convention and builds
// the entry list, enforcing the global invariants: a single label per
// index, a single record per kind, a non-empty index set that starts at 0
// with no gaps, and a complete key/value pair for every index. The result
// is sorted ascending by index; every emitter iterates in this order.
func Resolve(records []wit.Record) ([]Entry, error) {
	var slots []slot

	for i := range records {
		rec := records[i]
		m := recordNameRE.FindStringSubmatch(rec.Name)
		if m == nil {
			continue
		}
		idx64, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			// Matched digits that overflow uint32 cannot be a real
			// dbi; treat as non-dbi like any other unmatched name.
			continue
		}
		index := uint32(idx64)
		label := m[2]
		kind := m[3]

		for uint32(len(slots)) <= index {
			slots = append(slots, slot{})
		}
		s := &slots[index]

		if s.seen && s.label != label {
			return nil, &LabelConflictError{Index: index, Have: s.label, Got: label}
		}
		s.seen = true
		s.label = label

		switch kind {
		case "key":
			if s.hasKey {
				return nil, &DuplicateKindError{Index: index, Kind: kind, Record: rec.Name}
			}
			s.key = &records[i]
			s.hasKey = true
		case "value":
			if s.hasValue {
				return nil, &DuplicateKindError{Index: index, Kind: kind, Record: rec.Name}
			}
			s.value = &records[i]
			s.hasValue = true
		}
	}

	if len(slots) == 0 {
		return nil, ErrEmptySchema
	}
	if !slots[0].seen {
		return nil, ErrMissingZero
	}
	prev := uint32(0)
	for i := 1; i < len(slots); i++ {
		if !slots[i].seen {
			continue
		}
		if uint32(i) != prev+1 {
			return nil, &SequenceGapError{After: prev, Before: uint32(i)}
		}
		prev = uint32(i)
	}

	entries := make([]Entry, 0, len(slots))
	for i, s := range slots {
		if !s.hasKey {
			return nil, &IncompletePairError{Index: uint32(i), Missing: "key"}
		}
		if !s.hasValue {
			return nil, &IncompletePairError{Index: uint32(i), Missing: "value"}
		}
		entries = append(entries, Entry{
			Index: uint32(i),
			Label: s.label,
			Key:   *s.key,
			Value: *s.value,
		})
	}
	return entries, nil
}
