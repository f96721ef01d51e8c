// Package causerpays holds the canonical shape of AEMO causer pays 4-second
// data and the reader that maps heterogeneous source files onto it.
package causerpays

import (
	"strings"
)

// Canonical column names. Every downstream consumer (chunk files, enrichment,
// catalogs) relies on this order.
const (
	ColDatetime       = "datetime"
	ColElementNumber  = "elementnumber"
	ColVariableNumber = "variablenumber"
	ColValue          = "fcas_value"
	ColValueQuality   = "valuequality"
)

// CanonicalColumns is the ordered canonical schema.
var CanonicalColumns = []string{
	ColDatetime,
	ColElementNumber,
	ColVariableNumber,
	ColValue,
	ColValueQuality,
}

// SourceColumns are the column names used in the MMS FCAS_4_SECOND table,
// positionally aligned with CanonicalColumns.
var SourceColumns = []string{
	"TIMESTAMP",
	"ELEMENTNUMBER",
	"VARIABLENUMBER",
	"VALUE",
	"VALUEQUALITY",
}

// MatchKind classifies how a header row lines up with SourceColumns.
type MatchKind int

const (
	// MatchNone means no recognised column names; the file is treated as headerless.
	MatchNone MatchKind = iota
	// MatchPartial means some but not all names were found.
	MatchPartial
	// MatchFull means every source column is present.
	MatchFull
)

func (k MatchKind) String() string {
	switch k {
	case MatchNone:
		return "none"
	case MatchPartial:
		return "partial"
	case MatchFull:
		return "full"
	default:
		return "unknown"
	}
}

// SchemaMatch is the result of comparing a header row with SourceColumns.
type SchemaMatch struct {
	Kind MatchKind
	// Positions[i] is the header index holding CanonicalColumns[i], or -1.
	Positions []int
	Found     []string
	Missing   []string
}

// MatchSchema inspects a header row. Names compare case-insensitively after
// trimming whitespace; unrecognised extra columns are ignored.
func MatchSchema(header []string) SchemaMatch {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normaliseName(h)
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	m := SchemaMatch{Positions: make([]int, len(SourceColumns))}
	for i, name := range SourceColumns {
		if pos, ok := index[name]; ok {
			m.Positions[i] = pos
			m.Found = append(m.Found, name)
		} else {
			m.Positions[i] = -1
			m.Missing = append(m.Missing, name)
		}
	}

	switch len(m.Found) {
	case 0:
		m.Kind = MatchNone
	case len(SourceColumns):
		m.Kind = MatchFull
	default:
		m.Kind = MatchPartial
	}
	return m
}

func normaliseName(s string) string {
	return strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}
