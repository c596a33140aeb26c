// Package dataset implements the three aggregation transforms at the heart
// of the pipeline stage: column-wise grouping aggregation, top-two
// contributor ranking, and brick-type row consolidation.
//
// All transforms are pure: they take a records.Table plus parameters and
// return a fresh table, never mutating their input. Grouping uses exact,
// case-sensitive cell equality via records.Record.Key. Output rows preserve
// first-occurrence order of their group keys, which keeps results
// deterministic without imposing a sort.
package dataset

import (
	"fmt"

	"surveyagg/internal/faults"
	"surveyagg/pkg/records"
)

// Reduction names a recognized aggregate function for ColumnAggregator.
type Reduction string

const (
	ReductionSum     Reduction = "sum"
	ReductionCount   Reduction = "count"
	ReductionNUnique Reduction = "nunique"
	ReductionMean    Reduction = "mean"
	ReductionMin     Reduction = "min"
	ReductionMax     Reduction = "max"
)

// ParseReduction validates a caller-supplied reduction name.
func ParseReduction(s string) (Reduction, error) {
	switch r := Reduction(s); r {
	case ReductionSum, ReductionCount, ReductionNUnique, ReductionMean, ReductionMin, ReductionMax:
		return r, nil
	}
	return "", faults.New(faults.InvalidParameter, "unrecognized aggregation type %q", s)
}

// group is one partition of a table: the rows sharing a composite key, in
// input order.
type group struct {
	key  string
	rows []records.Record
}

// partition splits t into groups keyed by cols, preserving the order in
// which each key first appears.
func partition(t records.Table, cols []string) []group {
	index := make(map[string]int, len(t))
	var groups []group
	for _, r := range t {
		k := r.Key(cols)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	return groups
}

// cellFloat reads a numeric cell or reports which column held the bad value.
func cellFloat(r records.Record, col string) (float64, error) {
	v, ok := r.Float(col)
	if !ok {
		return 0, faults.New(faults.InvalidParameter,
			"non-numeric value %v in column %q", r[col], col)
	}
	return v, nil
}

// reduce applies red to valueCol over the rows of one group.
func reduce(rows []records.Record, valueCol string, red Reduction) (any, error) {
	switch red {
	case ReductionCount:
		return len(rows), nil
	case ReductionNUnique:
		seen := make(map[string]struct{}, len(rows))
		for _, r := range rows {
			seen[r.Key([]string{valueCol})] = struct{}{}
		}
		return len(seen), nil
	}

	var sum, min, max float64
	for i, r := range rows {
		v, err := cellFloat(r, valueCol)
		if err != nil {
			return nil, err
		}
		sum += v
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
	}
	switch red {
	case ReductionSum:
		return sum, nil
	case ReductionMean:
		return sum / float64(len(rows)), nil
	case ReductionMin:
		return min, nil
	case ReductionMax:
		return max, nil
	}
	return nil, faults.New(faults.InvalidParameter, "unrecognized aggregation type %q", red)
}

// sumBy groups t by keyCols and sums each of valueCols within every group.
// The output carries the key columns (values taken from the group's first
// row) plus one summed column per value column, one row per distinct key.
func sumBy(t records.Table, keyCols, valueCols []string) (records.Table, error) {
	out := make(records.Table, 0, len(t))
	for _, g := range partition(t, keyCols) {
		row := make(records.Record, len(keyCols)+len(valueCols))
		for _, c := range keyCols {
			row[c] = g.rows[0][c]
		}
		for _, c := range valueCols {
			var sum float64
			for _, r := range g.rows {
				v, err := cellFloat(r, c)
				if err != nil {
					return nil, fmt.Errorf("sum %q: %w", c, err)
				}
				sum += v
			}
			row[c] = sum
		}
		out = append(out, row)
	}
	return out, nil
}
