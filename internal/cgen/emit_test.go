package cgen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"witgen/internal/dbi"
	"witgen/internal/wit"
)

func stateEntries() []dbi.Entry {
	return []dbi.Entry{{
		Index: 0,
		Label: "state",
		Key: wit.Record{Name: "dbi0-state-key", Fields: []wit.Field{
			{Name: "namespace", Type: "utf8"},
			{Name: "key", Type: "utf8"},
		}},
		Value: wit.Record{Name: "dbi0-state-value", Fields: []wit.Field{
			{Name: "body", Type: "bytes"},
			{Name: "revision", Type: "s64"},
		}},
	}}
}

func TestEmitHeaderGolden(t *testing.T) {
	want := `/* Auto-generated by witgen; DO NOT EDIT. */
#ifndef SAPLING_WIT_SCHEMA_DBIS_H
#define SAPLING_WIT_SCHEMA_DBIS_H

#include <stdint.h>
#include <stddef.h>

typedef struct {
    uint32_t dbi;
    const char *name;
    const char *key_wit_record;
    const char *value_wit_record;
} SapWitDbiSchema;

#define SAP_WIT_DBI_STATE 0u

typedef struct __attribute__((packed)) {
    uint32_t namespace_offset;
    uint32_t namespace_len;
    uint32_t key_offset;
    uint32_t key_len;
} SapWit_dbi0_state_key;

static inline int sap_wit_validate_dbi0_state_key(const void *data, uint32_t len) {
    if (data == NULL || len == 0) return 0; /* Deletion or empty payload bypass */
    if (len < sizeof(SapWit_dbi0_state_key)) return -1; /* ERR_CORRUPT */
    (void)data; /* No refinement constraints */
    return 0;
}

typedef struct __attribute__((packed)) {
    uint32_t body_offset;
    uint32_t body_len;
    uint64_t revision;
} SapWit_dbi0_state_value;

static inline int sap_wit_validate_dbi0_state_value(const void *data, uint32_t len) {
    if (data == NULL || len == 0) return 0; /* Deletion or empty payload bypass */
    if (len < sizeof(SapWit_dbi0_state_value)) return -1; /* ERR_CORRUPT */
    (void)data; /* No refinement constraints */
    return 0;
}


extern const SapWitDbiSchema sap_wit_dbi_schema[];
extern const uint32_t sap_wit_dbi_schema_count;

#endif /* SAPLING_WIT_SCHEMA_DBIS_H */
`
	got := EmitHeader(stateEntries())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitSourceGolden(t *testing.T) {
	want := `/* Auto-generated by witgen; DO NOT EDIT. */
#include "include/sapling/generated_wit_schema_dbis.h"

const SapWitDbiSchema sap_wit_dbi_schema[] = {
    {0u, "state", "dbi0-state-key", "dbi0-state-value"},
};

const uint32_t sap_wit_dbi_schema_count = (uint32_t)(sizeof(sap_wit_dbi_schema) / sizeof(sap_wit_dbi_schema[0]));
`
	got := EmitSource(stateEntries(), "include/sapling/generated_wit_schema_dbis.h")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitHeaderRefinement(t *testing.T) {
	entries := []dbi.Entry{{
		Index: 0,
		Label: "belief",
		Key: wit.Record{Name: "dbi0-belief-key", Fields: []wit.Field{
			{Name: "id", Type: "u64"},
		}},
		Value: wit.Record{
			Name:   "dbi0-belief-value",
			Refine: "confidence >= 0.0",
			Fields: []wit.Field{{Name: "confidence", Type: "score"}},
		},
	}}
	header := EmitHeader(entries)
	assert.Contains(t, header, "double confidence;")
	assert.Contains(t, header,
		"if (!(rec->confidence >= 0.0)) return -1; /* Refinement violation */")
	assert.Contains(t, header,
		"const SapWit_dbi0_belief_value *rec = (const SapWit_dbi0_belief_value *)data;")
}

func TestRefinePredicate(t *testing.T) {
	t.Run("Whole Word Only", func(t *testing.T) {
		rec := wit.Record{
			Refine: "key_hash != 0 && key > 0",
			Fields: []wit.Field{
				{Name: "key", Type: "u32"},
				{Name: "key_hash", Type: "u64"},
			},
		}
		got := refinePredicate(rec)
		assert.Equal(t, "rec->key_hash != 0 && rec->key > 0", got)
	})

	t.Run("Hyphenated Field", func(t *testing.T) {
		rec := wit.Record{
			Refine: "updated-at > 0",
			Fields: []wit.Field{{Name: "updated-at", Type: "timestamp"}},
		}
		assert.Equal(t, "rec->updated_at > 0", refinePredicate(rec))
	})

	t.Run("Unknown Name Passes Through", func(t *testing.T) {
		// Not silently dropped: it surfaces as a C compile error.
		rec := wit.Record{
			Refine: "ghost > 0",
			Fields: []wit.Field{{Name: "real", Type: "u32"}},
		}
		assert.Equal(t, "ghost > 0", refinePredicate(rec))
	})
}

func TestEmitHeaderDedupSharedRecord(t *testing.T) {
	shared := wit.Record{Name: "dbi0-state-key", Fields: []wit.Field{{Name: "k", Type: "u32"}}}
	entries := []dbi.Entry{
		{Index: 0, Label: "state", Key: shared,
			Value: wit.Record{Name: "dbi0-state-value"}},
		{Index: 1, Label: "mirror", Key: shared,
			Value: wit.Record{Name: "dbi1-mirror-value"}},
	}
	header := EmitHeader(entries)
	require.Equal(t, 1, strings.Count(header, "} SapWit_dbi0_state_key;"))
	require.Equal(t, 1, strings.Count(header, "sap_wit_validate_dbi0_state_key("))
	assert.Contains(t, header, "#define SAP_WIT_DBI_STATE 0u")
	assert.Contains(t, header, "#define SAP_WIT_DBI_MIRROR 1u")
}

func TestEmitHeaderValidatorStaging(t *testing.T) {
	// Every validator carries the tombstone bypass and the size check, in
	// that order, regardless of schema.
	header := EmitHeader(stateEntries())
	for _, line := range []string{
		"if (data == NULL || len == 0) return 0;",
		"if (len < sizeof(SapWit_dbi0_state_key)) return -1;",
		"if (len < sizeof(SapWit_dbi0_state_value)) return -1;",
	} {
		assert.Contains(t, header, line)
	}
}
