package dataset

import (
	"sort"

	"surveyagg/internal/faults"
	"surveyagg/pkg/records"
)

// TopTwoParams configures RankTopTwo.
type TopTwoParams struct {
	// PeriodColumn partitions the batch into survey periods.
	PeriodColumn string
	// AggregatedColumn is the contributor grouping column within a period,
	// e.g. "county".
	AggregatedColumn string
	// AdditionalColumn is carried through to the output unchanged, e.g.
	// "region".
	AdditionalColumn string
	// TotalColumn is the value column the contributors are ranked by.
	TotalColumn string
	// Top1Column and Top2Column name the output columns receiving the
	// largest and second-largest values.
	Top1Column string
	Top2Column string
}

// RankTopTwo finds, for every (period, group) partition, the largest and
// second-largest values of the total column and broadcasts them to every row
// of the partition. A partition with a single row gets the initialized
// default 0 as its second value; the default is fresh per partition, so a
// small group can never inherit a neighbour's second value. Group values
// repeated in the raw input are de-duplicated by the partitioning itself.
//
// The output is restricted to the group, additional, and period columns plus
// the two contributor columns.
func RankTopTwo(t records.Table, p TopTwoParams) (records.Table, error) {
	if missing := t.MissingColumns(p.PeriodColumn, p.AggregatedColumn, p.AdditionalColumn, p.TotalColumn); len(missing) > 0 {
		return nil, faults.Missing(missing)
	}

	out := make(records.Table, len(t))
	for i, r := range t {
		out[i] = records.Record{
			p.AggregatedColumn: r[p.AggregatedColumn],
			p.AdditionalColumn: r[p.AdditionalColumn],
			p.PeriodColumn:     r[p.PeriodColumn],
			p.Top1Column:       0,
			p.Top2Column:       0,
		}
	}

	keyCols := []string{p.PeriodColumn, p.AggregatedColumn}
	// Track output rows by partition via the same keys used to build it.
	members := make(map[string][]int, len(t))
	for i, r := range t {
		k := r.Key(keyCols)
		members[k] = append(members[k], i)
	}

	for _, g := range partition(t, keyCols) {
		values := make([]float64, len(g.rows))
		for i, r := range g.rows {
			v, err := cellFloat(r, p.TotalColumn)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		// Stable sort keeps first-occurrence order among ties.
		sort.SliceStable(values, func(i, j int) bool { return values[i] > values[j] })

		largest := values[0]
		second := float64(0)
		if len(values) >= 2 {
			second = values[1]
		}
		for _, i := range members[g.key] {
			out[i][p.Top1Column] = largest
			out[i][p.Top2Column] = second
		}
	}
	return out, nil
}
