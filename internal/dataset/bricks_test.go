package dataset

import (
	"context"
	"errors"
	"testing"

	"surveyagg/internal/faults"
	"surveyagg/pkg/records"
)

// duplicateInjector mimics the region method: one sentinel copy per row with
// the region column recoded.
type duplicateInjector struct{}

func (duplicateInjector) InjectRegionless(_ context.Context, t records.Table, regionColumn string, regionlessCode int) (records.Table, error) {
	out := t.Clone()
	for _, r := range t {
		cp := r.Clone()
		cp[regionColumn] = regionlessCode
		out = append(out, cp)
	}
	return out, nil
}

type failingInjector struct{}

func (failingInjector) InjectRegionless(context.Context, records.Table, string, int) (records.Table, error) {
	return nil, errors.New("method unavailable")
}

func brickParams() BrickParams {
	return BrickParams{
		TotalColumns:     []string{"opening_stock", "produced"},
		UniqueIdentifier: []string{"brick_type", "region", "period"},
		RegionColumn:     "region",
		RegionlessCode:   14,
	}
}

// brickRow builds an input row with all six prefixed columns zeroed, then
// applies overrides.
func brickRow(region, period string, overrides map[string]float64) records.Record {
	r := records.Record{"region": region, "period": period}
	for _, brick := range []string{"clay", "concrete", "sandlime"} {
		for _, col := range []string{"opening_stock", "produced"} {
			r[brick+"_"+col] = 0.0
		}
	}
	for k, v := range overrides {
		r[k] = v
	}
	return r
}

func TestConsolidatePrunesAllZeroRows(t *testing.T) {
	in := records.Table{
		brickRow("1", "202009", map[string]float64{"clay_produced": 5}),
		brickRow("1", "202009", nil), // all zero, must vanish
	}
	region, brick, pruned, err := Consolidate(context.Background(), in, brickParams(), duplicateInjector{})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d; want 1", pruned)
	}
	for _, out := range []records.Table{region, brick} {
		for _, r := range out {
			if v, _ := r.Float("produced"); v == 0 {
				if s, _ := r.Float("opening_stock"); s == 0 {
					t.Fatalf("pruned row leaked into output: %v", r)
				}
			}
		}
	}
}

func TestConsolidateClassifiesAndFolds(t *testing.T) {
	in := records.Table{
		brickRow("1", "202009", map[string]float64{"clay_produced": 7}),
	}
	_, brick, _, err := Consolidate(context.Background(), in, brickParams(), duplicateInjector{})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	var sawClay bool
	for _, r := range brick {
		if r["brick_type"] == int(BrickClay) {
			sawClay = true
			if v, _ := r.Float("produced"); v != 7 {
				t.Fatalf("generic produced = %v; want folded 7", r["produced"])
			}
			// Prefixed columns must be gone after folding.
			if _, ok := r["clay_produced"]; ok {
				t.Fatal("prefixed column survived folding")
			}
		}
	}
	if !sawClay {
		t.Fatalf("no clay-classified row in brick output: %v", brick)
	}
}

func TestConsolidateMultiCategoryRowsUsePriorityOrder(t *testing.T) {
	// Rows positive in more than one block classify by the fixed priority
	// (clay, concrete, sandlime), not by the largest block, and only the
	// matched block folds into the generic columns.
	in := records.Table{
		brickRow("1", "202009", map[string]float64{"clay_produced": 1, "concrete_produced": 9}),
		brickRow("1", "202009", map[string]float64{"concrete_produced": 4, "sandlime_produced": 6}),
	}
	_, brick, _, err := Consolidate(context.Background(), in, brickParams(), duplicateInjector{})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	totals := map[int]float64{}
	for _, r := range brick {
		bt, ok := r["brick_type"].(int)
		if !ok {
			t.Fatalf("brick_type not int: %v", r["brick_type"])
		}
		totals[bt] += mustFloat(t, r, "produced")
	}
	// Row one is clay despite the larger concrete block; its concrete 9 is
	// dropped by the fold. Row two is concrete ahead of sandlime.
	if totals[int(BrickClay)] != 1 {
		t.Fatalf("clay total = %v; want 1", totals[int(BrickClay)])
	}
	if totals[int(BrickConcrete)] != 4 {
		t.Fatalf("concrete total = %v; want 4", totals[int(BrickConcrete)])
	}
	if totals[int(BrickSandlime)] != 0 {
		t.Fatalf("sandlime total = %v; want none", totals[int(BrickSandlime)])
	}
	// Only the clay row recodes to the combined type.
	if totals[int(BrickCombined)] != 1 {
		t.Fatalf("combined total = %v; want 1", totals[int(BrickCombined)])
	}
}

func TestConsolidateMergesClayAndSandlime(t *testing.T) {
	in := records.Table{
		brickRow("1", "202009", map[string]float64{"clay_produced": 5}),
		brickRow("1", "202009", map[string]float64{"sandlime_produced": 3}),
		brickRow("1", "202009", map[string]float64{"concrete_produced": 11}),
	}
	_, brick, _, err := Consolidate(context.Background(), in, brickParams(), duplicateInjector{})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	totals := map[int]float64{}
	for _, r := range brick {
		bt, ok := r["brick_type"].(int)
		if !ok {
			t.Fatalf("brick_type not int: %v", r["brick_type"])
		}
		v, _ := r.Float("produced")
		totals[bt] += v
	}
	if totals[int(BrickCombined)] != 8 {
		t.Fatalf("combined clay+sandlime total = %v; want 8", totals[int(BrickCombined)])
	}
	if totals[int(BrickConcrete)] != 11 {
		t.Fatalf("concrete total = %v; want separate 11", totals[int(BrickConcrete)])
	}
	// Originals remain alongside the merged rows.
	if totals[int(BrickClay)] != 5 || totals[int(BrickSandlime)] != 3 {
		t.Fatalf("original type totals = %v; want clay 5, sandlime 3", totals)
	}
}

func TestConsolidateRegionAggregation(t *testing.T) {
	// 4 rows, 2 periods x 2 regions, totals 5/15/8/2.
	in := records.Table{
		brickRow("1", "202009", map[string]float64{"clay_produced": 5}),
		brickRow("1", "202009", map[string]float64{"clay_produced": 15}),
		brickRow("2", "202012", map[string]float64{"concrete_produced": 8}),
		brickRow("2", "202012", map[string]float64{"sandlime_produced": 2}),
	}
	region, _, _, err := Consolidate(context.Background(), in, brickParams(), duplicateInjector{})
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	got := map[string]float64{}
	for _, r := range region {
		got[r.Key([]string{"region", "period"})] = mustFloat(t, r, "produced")
	}
	want := map[string]float64{
		"1\x1f202009":  20,
		"2\x1f202012":  10,
		"14\x1f202009": 20, // regionless sentinel per key group
		"14\x1f202012": 10,
	}
	if len(got) != len(want) {
		t.Fatalf("region output has %d rows; want %d (%v)", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("region total for %q = %v; want %v", k, got[k], v)
		}
	}
}

func TestConsolidateInjectorFailureAbortsAll(t *testing.T) {
	in := records.Table{
		brickRow("1", "202009", map[string]float64{"clay_produced": 5}),
	}
	region, brick, _, err := Consolidate(context.Background(), in, brickParams(), failingInjector{})
	if !faults.Is(err, faults.ExternalCall) {
		t.Fatalf("err = %v; want ExternalCall", err)
	}
	if region != nil || brick != nil {
		t.Fatal("no partial output may be returned on collaborator failure")
	}
}

func TestConsolidateEmptyAndAllZeroInputs(t *testing.T) {
	if _, _, _, err := Consolidate(context.Background(), nil, brickParams(), duplicateInjector{}); !faults.Is(err, faults.NoData) {
		t.Fatalf("empty input err = %v; want NoData", err)
	}
	in := records.Table{brickRow("1", "202009", nil)}
	if _, _, _, err := Consolidate(context.Background(), in, brickParams(), duplicateInjector{}); !faults.Is(err, faults.NoData) {
		t.Fatalf("all-zero input err = %v; want NoData", err)
	}
}

func TestConsolidateMissingPrefixedColumn(t *testing.T) {
	in := records.Table{{"region": "1", "period": "202009"}}
	_, _, _, err := Consolidate(context.Background(), in, brickParams(), duplicateInjector{})
	if !faults.Is(err, faults.MissingColumn) {
		t.Fatalf("err = %v; want MissingColumn", err)
	}
}

func mustFloat(t *testing.T, r records.Record, col string) float64 {
	t.Helper()
	v, ok := r.Float(col)
	if !ok {
		t.Fatalf("column %q not numeric: %v", col, r[col])
	}
	return v
}
