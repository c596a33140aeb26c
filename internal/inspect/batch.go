// Package inspect profiles row-oriented batches so an operator can sanity
// check an input before pointing a run at it: which columns exist, what
// types their cells carry, and the numeric range of the value columns.
package inspect

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"surveyagg/pkg/records"
)

// maxDistinct caps the tracked distinct values per column. Past the cap the
// column reports "maxDistinct+" instead of an exact cardinality.
const maxDistinct = 64

// Column is the profile of one column across the batch.
type Column struct {
	// Name is the column name as it appears in the batch.
	Name string `json:"name"`
	// Normalized is the lowercase ASCII identifier form of Name.
	Normalized string `json:"normalized"`
	// Numbers, Strings, Nulls, and Others count cells by JSON type.
	Numbers int `json:"numbers"`
	Strings int `json:"strings"`
	Nulls   int `json:"nulls"`
	Others  int `json:"others"`
	// Missing counts rows that carry no cell for this column at all.
	Missing int `json:"missing"`
	// Min, Max, and Sum summarize the numeric cells; meaningless when
	// Numbers is zero.
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Sum float64 `json:"sum"`
	// Distinct is the stabilized-value cardinality, capped.
	Distinct int  `json:"distinct"`
	Capped   bool `json:"capped,omitempty"`
}

// Profile is the batch-level summary.
type Profile struct {
	Rows    int      `json:"rows"`
	Columns []Column `json:"columns"`
}

// Batch profiles t. Columns are reported in lexical order so the output is
// stable regardless of row iteration order.
func Batch(t records.Table) Profile {
	type state struct {
		col      Column
		distinct map[string]struct{}
	}
	states := map[string]*state{}

	for _, r := range t {
		for name, v := range r {
			s, ok := states[name]
			if !ok {
				s = &state{
					col:      Column{Name: name, Normalized: NormalizeName(name)},
					distinct: map[string]struct{}{},
				}
				states[name] = s
			}
			key := r.Key([]string{name})
			if _, seen := s.distinct[key]; !seen {
				if len(s.distinct) < maxDistinct {
					s.distinct[key] = struct{}{}
				} else {
					s.col.Capped = true
				}
			}
			if v == nil {
				s.col.Nulls++
				continue
			}
			if n, ok := records.Num(v); ok {
				if s.col.Numbers == 0 || n < s.col.Min {
					s.col.Min = n
				}
				if s.col.Numbers == 0 || n > s.col.Max {
					s.col.Max = n
				}
				s.col.Sum += n
				s.col.Numbers++
				continue
			}
			if _, ok := v.(string); ok {
				s.col.Strings++
			} else {
				s.col.Others++
			}
		}
	}

	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	p := Profile{Rows: len(t), Columns: make([]Column, 0, len(names))}
	for _, name := range names {
		s := states[name]
		s.col.Distinct = len(s.distinct)
		s.col.Missing = len(t) - (s.col.Numbers + s.col.Strings + s.col.Nulls + s.col.Others)
		p.Columns = append(p.Columns, s.col)
	}
	return p
}

// Render formats the profile as an aligned text table for terminal output.
func (p Profile) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rows: %d\n", p.Rows)
	fmt.Fprintf(&b, "%-30s %8s %8s %6s %7s %10s %12s %12s\n",
		"column", "numbers", "strings", "nulls", "missing", "distinct", "min", "max")
	for _, c := range p.Columns {
		distinct := fmt.Sprintf("%d", c.Distinct)
		if c.Capped {
			distinct += "+"
		}
		min, max := "-", "-"
		if c.Numbers > 0 {
			min = fmt.Sprintf("%g", c.Min)
			max = fmt.Sprintf("%g", c.Max)
		}
		fmt.Fprintf(&b, "%-30s %8d %8d %6d %7d %10s %12s %12s\n",
			c.Name, c.Numbers, c.Strings, c.Nulls, c.Missing, distinct, min, max)
	}
	return b.String()
}

// NormalizeName converts arbitrary column text into a lowercase ASCII
// identifier:
//  1. lowercase
//  2. strip accents (NFD, remove Mn, NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}
