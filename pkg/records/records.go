// Package records defines the in-memory row model shared by every stage of
// the aggregation pipeline.
//
// A Record is one survey response row: a flat map of column name to scalar
// value. A Table is an ordered batch of records with a common column set.
// Values arrive from row-oriented JSON payloads decoded with UseNumber, so
// numeric cells may be json.Number, float64, or int depending on origin;
// the helpers here normalize access so transforms never type-switch inline.
//
// Column names are exact, case-sensitive strings supplied wholesale by the
// runtime parameters. No normalization or case-folding is performed here.
package records

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is a single row keyed by column name.
type Record map[string]any

// Table is an ordered batch of records.
type Table []Record

// Clone returns a shallow-key deep copy of the record (values are scalars,
// so copying the map is sufficient).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Clone copies every record in the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = r.Clone()
	}
	return out
}

// Has reports whether every record in the table carries the column. An empty
// table trivially has any column.
func (t Table) Has(col string) bool {
	for _, r := range t {
		if _, ok := r[col]; !ok {
			return false
		}
	}
	return true
}

// MissingColumns returns the subset of cols absent from the table, in the
// order given.
func (t Table) MissingColumns(cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Float coerces the value of col to float64. The bool result is false when
// the column is absent, nil, or not numeric.
func (r Record) Float(col string) (float64, bool) {
	return Num(r[col])
}

// Num coerces a scalar cell to float64. json.Number, float64, and the int
// family are accepted; anything else (including numeric strings) is rejected
// so that type errors surface instead of silently aggregating garbage.
func Num(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Key builds a composite group key from the named columns. Cells are joined
// with \x1f; nil renders as \x00 so absent and empty stay distinct. Two rows
// share a key iff every keyed cell compares equal after stabilization through
// fmt.Sprint, which matches the exact-equality grouping contract.
func (r Record) Key(cols []string) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch v := r[c].(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(v)
		case json.Number:
			b.WriteString(v.String())
		default:
			b.WriteString(fmt.Sprint(v))
		}
	}
	return b.String()
}
