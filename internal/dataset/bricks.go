package dataset

import (
	"context"
	"fmt"

	"surveyagg/internal/faults"
	"surveyagg/pkg/records"
)

// BrickType is the numeric classification a consolidated row carries.
type BrickType int

const (
	// BrickCombined represents clay and sandlime merged for the by-type
	// aggregation output.
	BrickCombined BrickType = 1
	BrickConcrete BrickType = 2
	BrickClay     BrickType = 3
	BrickSandlime BrickType = 4
)

// brickPriority is the explicit classification order: the first type whose
// column block sums positive wins. The survey design treats the blocks as
// mutually exclusive, so for clean data the order is irrelevant; for dirty
// data it is the documented tie-break.
var brickPriority = []struct {
	name string
	id   BrickType
}{
	{"clay", BrickClay},
	{"concrete", BrickConcrete},
	{"sandlime", BrickSandlime},
}

// BrickParams configures Consolidate.
type BrickParams struct {
	// TotalColumns are the tracked base value columns. The input carries one
	// prefixed variant per brick type for each of them (clay_X, concrete_X,
	// sandlime_X); the output carries just X.
	TotalColumns []string
	// UniqueIdentifier lists the identifier columns. Element 0 names the
	// column that receives the brick type id (created by classification);
	// the remainder (region, period, ...) must be present in the input.
	UniqueIdentifier []string
	// RegionColumn and RegionlessCode parameterize the region-injection
	// collaborator used by the region aggregation.
	RegionColumn   string
	RegionlessCode int
}

// RegionInjector is the external collaborator that appends regionless
// sentinel rows before the region aggregation. Implementations typically
// invoke a paired remote method; failure aborts the whole consolidation.
type RegionInjector interface {
	InjectRegionless(ctx context.Context, t records.Table, regionColumn string, regionlessCode int) (records.Table, error)
}

// plan precomputes the (brick type, base column) to prefixed-column mapping
// so classification and folding never build lookup keys per row.
type plan struct {
	// prefixed[i][j] is the input column for brickPriority[i] and
	// TotalColumns[j].
	prefixed [][]string
	all      []string
}

func newPlan(totalColumns []string) plan {
	p := plan{prefixed: make([][]string, len(brickPriority))}
	for i, bt := range brickPriority {
		p.prefixed[i] = make([]string, len(totalColumns))
		for j, col := range totalColumns {
			name := bt.name + "_" + col
			p.prefixed[i][j] = name
			p.all = append(p.all, name)
		}
	}
	return p
}

// Consolidate runs the four-stage brick consolidation over t and returns the
// region-aggregated and brick-type-aggregated tables, in that order, plus
// the number of all-zero rows the prune stage dropped.
//
// Stages: prune rows whose prefixed value columns sum to zero; classify each
// survivor with the first brick type whose block sums positive; fold the
// matched block into the generic base columns and drop all prefixed columns;
// aggregate twice: by region after the injector adds regionless sentinel
// rows, and by brick type after recoding non-concrete rows to the combined
// type and appending them to the original rows.
func Consolidate(ctx context.Context, t records.Table, p BrickParams, inj RegionInjector) (region, brick records.Table, pruned int, err error) {
	if len(t) == 0 {
		return nil, nil, 0, faults.New(faults.NoData, "input batch is empty")
	}
	if len(p.TotalColumns) == 0 {
		return nil, nil, 0, faults.New(faults.InvalidParameter, "total_columns must not be empty")
	}
	if len(p.UniqueIdentifier) < 2 {
		return nil, nil, 0, faults.New(faults.InvalidParameter,
			"unique_identifier needs the brick type column plus at least one more")
	}
	pl := newPlan(p.TotalColumns)

	required := append(append([]string{}, pl.all...), p.UniqueIdentifier[1:]...)
	if missing := t.MissingColumns(required...); len(missing) > 0 {
		return nil, nil, 0, faults.Missing(missing)
	}

	typeColumn := p.UniqueIdentifier[0]

	consolidated := make(records.Table, 0, len(t))
	for _, r := range t {
		blocks := make([]float64, len(brickPriority))
		var total float64
		for i := range brickPriority {
			for _, col := range pl.prefixed[i] {
				v, err := cellFloat(r, col)
				if err != nil {
					return nil, nil, 0, err
				}
				blocks[i] += v
			}
			total += blocks[i]
		}
		// Prune: a row with nothing in any block carries no data at all.
		if total == 0 {
			pruned++
			continue
		}

		// Classify: first positive block wins. A survivor always matches,
		// since the prune total is the sum of the block totals.
		match := -1
		for i, sum := range blocks {
			if sum > 0 {
				match = i
				break
			}
		}
		if match < 0 {
			// Negative blocks cancelling to a positive total cannot reach
			// here, but fail loudly rather than misclassify.
			return nil, nil, 0, faults.New(faults.InvalidParameter,
				"row has positive total but no positive brick type block")
		}

		// Fold the matched block into the generic columns, drop the rest.
		out := make(records.Record, len(r))
		for k, v := range r {
			out[k] = v
		}
		for _, name := range pl.all {
			delete(out, name)
		}
		for j, col := range p.TotalColumns {
			v, _ := records.Num(r[pl.prefixed[match][j]])
			out[col] = v
		}
		out[typeColumn] = int(brickPriority[match].id)
		consolidated = append(consolidated, out)
	}

	if len(consolidated) == 0 {
		return nil, nil, pruned, faults.New(faults.NoData, "every row in the batch was all zero")
	}

	region, err = aggregateByRegion(ctx, consolidated, p, inj)
	if err != nil {
		return nil, nil, pruned, err
	}
	brick, err = aggregateByType(consolidated, p)
	if err != nil {
		return nil, nil, pruned, err
	}
	return region, brick, pruned, nil
}

// aggregateByRegion asks the collaborator to add the regionless sentinel
// rows, then totals every base column per non-type identifier combination.
func aggregateByRegion(ctx context.Context, t records.Table, p BrickParams, inj RegionInjector) (records.Table, error) {
	if inj == nil {
		return nil, faults.New(faults.ExternalCall, "no region injector configured")
	}
	withSentinel, err := inj.InjectRegionless(ctx, t, p.RegionColumn, p.RegionlessCode)
	if err != nil {
		return nil, faults.Wrap(faults.ExternalCall, err, "region injection failed")
	}
	out, err := sumBy(withSentinel, p.UniqueIdentifier[1:], p.TotalColumns)
	if err != nil {
		return nil, fmt.Errorf("aggregate by region: %w", err)
	}
	return out, nil
}

// aggregateByType recodes every non-concrete row to the combined type,
// appends the recoded copies to the originals, and totals per
// (type, next identifier) pair.
func aggregateByType(t records.Table, p BrickParams) (records.Table, error) {
	typeColumn := p.UniqueIdentifier[0]
	union := make(records.Table, 0, 2*len(t))
	union = append(union, t...)
	for _, r := range t {
		if r[typeColumn] == int(BrickConcrete) {
			continue
		}
		cp := r.Clone()
		cp[typeColumn] = int(BrickCombined)
		union = append(union, cp)
	}
	out, err := sumBy(union, p.UniqueIdentifier[0:2], p.TotalColumns)
	if err != nil {
		return nil, fmt.Errorf("aggregate by brick type: %w", err)
	}
	return out, nil
}
