package dataset

import (
	"surveyagg/internal/faults"
	"surveyagg/pkg/records"
)

// ColumnParams configures Aggregate.
type ColumnParams struct {
	// AggregatedColumn is the primary grouping column, e.g. "county".
	AggregatedColumn string
	// AdditionalColumn is the secondary grouping column, e.g. "region".
	AdditionalColumn string
	// TotalColumn is the value column reduced within each group.
	TotalColumn string
	// CellTotalColumn names the reduced column in the output.
	CellTotalColumn string
	// AggregationType selects the reduction, e.g. "sum", "count", "nunique".
	AggregationType string
}

// Aggregate groups t by (AdditionalColumn, AggregatedColumn), reduces
// TotalColumn within each group, and emits the reduced value under
// CellTotalColumn. The output has exactly one row per distinct group pair,
// carrying only the two group columns and the renamed total.
func Aggregate(t records.Table, p ColumnParams) (records.Table, error) {
	red, err := ParseReduction(p.AggregationType)
	if err != nil {
		return nil, err
	}
	if missing := t.MissingColumns(p.AdditionalColumn, p.AggregatedColumn, p.TotalColumn); len(missing) > 0 {
		return nil, faults.Missing(missing)
	}

	keyCols := []string{p.AdditionalColumn, p.AggregatedColumn}
	out := make(records.Table, 0, len(t))
	for _, g := range partition(t, keyCols) {
		total, err := reduce(g.rows, p.TotalColumn, red)
		if err != nil {
			return nil, err
		}
		out = append(out, records.Record{
			p.AdditionalColumn: g.rows[0][p.AdditionalColumn],
			p.AggregatedColumn: g.rows[0][p.AggregatedColumn],
			p.CellTotalColumn:  total,
		})
	}
	return out, nil
}
