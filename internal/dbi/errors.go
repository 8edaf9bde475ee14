package dbi

import (
	"errors"
	"fmt"
)

// Resolution failures are fatal: the caller must abort the run without
// writing any output.
var (
	ErrEmptySchema = errors.New("no dbi records found (expected dbiN-*-key/value records)")
	ErrMissingZero = errors.New("dbi sequence must start at 0")
)

// LabelConflictError reports two records that share an index but disagree
// on its label.
type LabelConflictError struct {
	Index uint32
	Have  string
	Got   string
}

func (e *LabelConflictError) Error() string {
	return fmt.Sprintf("dbi %d has multiple names (%q vs %q)", e.Index, e.Have, e.Got)
}

// DuplicateKindError reports a second key (or value) record for one index.
type DuplicateKindError struct {
	Index  uint32
	Kind   string
	Record string
}

func (e *DuplicateKindError) Error() string {
	return fmt.Sprintf("duplicate %s record for dbi %d: %s", e.Kind, e.Index, e.Record)
}

// SequenceGapError reports a hole in the dbi numbering, naming the two
// present indices on either side of it.
type SequenceGapError struct {
	After  uint32
	Before uint32
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("dbi sequence gap between %d and %d", e.After, e.Before)
}

// IncompletePairError reports an index missing its key or value record.
type IncompletePairError struct {
	Index   uint32
	Missing string
}

func (e *IncompletePairError) Error() string {
	return fmt.Sprintf("dbi %d missing %s record", e.Index, e.Missing)
}
