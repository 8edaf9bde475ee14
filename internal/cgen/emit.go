package cgen

import (
	"fmt"
	"regexp"
	"strings"

	"witgen/internal/dbi"
	"witgen/internal/wit"
)

const (
	banner      = "/* Auto-generated by witgen; DO NOT EDIT. */"
	headerGuard = "SAPLING_WIT_SCHEMA_DBIS_H"
)

// EmitHeader renders the generated C header for the resolved entries:
// one numeric constant per dbi, one packed struct and one validator per
// distinct record (key and value roles share the path; a record referenced
// twice is emitted once, at first appearance), and the extern table
// declarations. Output is a pure function of the entry list.
func EmitHeader(entries []dbi.Entry) string {
	var b strings.Builder
	b.WriteString(banner + "\n")
	b.WriteString("#ifndef " + headerGuard + "\n")
	b.WriteString("#define " + headerGuard + "\n\n")
	b.WriteString("#include <stdint.h>\n")
	b.WriteString("#include <stddef.h>\n\n")
	b.WriteString("typedef struct {\n")
	b.WriteString("    uint32_t dbi;\n")
	b.WriteString("    const char *name;\n")
	b.WriteString("    const char *key_wit_record;\n")
	b.WriteString("    const char *value_wit_record;\n")
	b.WriteString("} SapWitDbiSchema;\n\n")

	for _, e := range entries {
		fmt.Fprintf(&b, "#define SAP_WIT_DBI_%s %du\n", e.ConstName(), e.Index)
	}
	b.WriteString("\n")

	seen := make(map[string]bool)
	for _, e := range entries {
		for _, rec := range []wit.Record{e.Key, e.Value} {
			if seen[rec.Name] {
				continue
			}
			seen[rec.Name] = true
			emitStruct(&b, rec)
			emitValidator(&b, rec)
		}
	}

	b.WriteString("\n")
	b.WriteString("extern const SapWitDbiSchema sap_wit_dbi_schema[];\n")
	b.WriteString("extern const uint32_t sap_wit_dbi_schema_count;\n\n")
	b.WriteString("#endif /* " + headerGuard + " */\n")
	return b.String()
}

// EmitSource renders the generated C source: the schema table, one row per
// entry in ascending dbi order (consumers rely on index-to-slot
// correspondence), and its count.
func EmitSource(entries []dbi.Entry, headerPath string) string {
	var b strings.Builder
	b.WriteString(banner + "\n")
	fmt.Fprintf(&b, "#include %q\n\n", headerPath)
	b.WriteString("const SapWitDbiSchema sap_wit_dbi_schema[] = {\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "    {%du, %q, %q, %q},\n",
			e.Index, strings.ReplaceAll(e.Label, "-", "_"), e.Key.Name, e.Value.Name)
	}
	b.WriteString("};\n\n")
	b.WriteString("const uint32_t sap_wit_dbi_schema_count = " +
		"(uint32_t)(sizeof(sap_wit_dbi_schema) / sizeof(sap_wit_dbi_schema[0]));\n")
	return b.String()
}

func emitStruct(b *strings.Builder, rec wit.Record) {
	b.WriteString("typedef struct __attribute__((packed)) {\n")
	for _, cell := range LayoutFor(rec).Cells {
		b.WriteString("    " + cell.Decl + "\n")
	}
	fmt.Fprintf(b, "} SapWit_%s;\n\n", rec.CName())
}

// emitValidator renders the three-outcome load-time check: empty buffers
// are tombstones and always pass, short buffers are corrupt, and a
// refinement (if any) must hold over the decoded record.
func emitValidator(b *strings.Builder, rec wit.Record) {
	cname := rec.CName()
	fmt.Fprintf(b, "static inline int sap_wit_validate_%s(const void *data, uint32_t len) {\n", cname)
	b.WriteString("    if (data == NULL || len == 0) return 0; /* Deletion or empty payload bypass */\n")
	fmt.Fprintf(b, "    if (len < sizeof(SapWit_%s)) return -1; /* ERR_CORRUPT */\n", cname)
	if rec.Refine != "" {
		fmt.Fprintf(b, "    const SapWit_%s *rec = (const SapWit_%s *)data;\n", cname, cname)
		fmt.Fprintf(b, "    if (!(%s)) return -1; /* Refinement violation */\n", refinePredicate(rec))
	} else {
		b.WriteString("    (void)data; /* No refinement constraints */\n")
	}
	b.WriteString("    return 0;\n")
	b.WriteString("}\n\n")
}

// refinePredicate rewrites the refinement expression into a predicate over
// the decoded record. Only whole-word occurrences of declared field names
// are substituted, so "key" never rewrites part of "key_hash"; a name that
// matches no declared field passes through verbatim and surfaces as a C
// compile error instead of being silently dropped.
func refinePredicate(rec wit.Record) string {
	expr := rec.Refine
	for _, f := range rec.Fields {
		if !strings.Contains(expr, f.Name) {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(f.Name) + `\b`)
		expr = re.ReplaceAllString(expr, "rec->"+f.CName())
	}
	return expr
}
