package method

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"surveyagg/internal/invoke"
	payload "surveyagg/internal/parser/json"
	"surveyagg/pkg/records"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func call(t *testing.T, h invoke.Handler, p any) records.Table {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	res := h(context.Background(), b)
	require.Truef(t, res.Success, "method failed: %s", res.Error)
	table, err := payload.DecodeBytes(res.Data)
	require.NoError(t, err)
	return table
}

func TestColumnTotalsMethod(t *testing.T) {
	data := `[{"region":"1","county":"10","Q608_total":5},
	          {"region":"1","county":"10","Q608_total":15}]`
	got := call(t, ColumnTotals(quietLogger()), ColumnPayload{
		Data:                       json.RawMessage(data),
		TotalColumn:                "Q608_total",
		AdditionalAggregatedColumn: "region",
		AggregatedColumn:           "county",
		CellTotalColumn:            "county_total",
		AggregationType:            "sum",
		RunID:                      "r1",
	})
	require.Len(t, got, 1)
	v, ok := got[0].Float("county_total")
	require.True(t, ok)
	require.Equal(t, 20.0, v)
}

func TestColumnTotalsMethodFailureEnvelope(t *testing.T) {
	res := ColumnTotals(quietLogger())(context.Background(), json.RawMessage(
		`{"data":[{"county":"10"}],"aggregated_column":"county",
		  "additional_aggregated_column":"region","total_column":"Q608_total",
		  "cell_total_column":"t","aggregation_type":"sum","run_id":"r2"}`))
	require.False(t, res.Success)
	require.Contains(t, res.Error, "Key Error")
	require.Contains(t, res.Error, "run_id: r2")
}

func TestTopTwoMethod(t *testing.T) {
	data := `[{"period":"202009","county":"10","region":"1","Q608_total":10},
	          {"period":"202009","county":"10","region":"1","Q608_total":30},
	          {"period":"202009","county":"10","region":"1","Q608_total":20}]`
	got := call(t, TopTwo(quietLogger()), TopTwoPayload{
		Data:                       json.RawMessage(data),
		PeriodColumn:               "period",
		AggregatedColumn:           "county",
		AdditionalAggregatedColumn: "region",
		TotalColumn:                "Q608_total",
		Top1Column:                 "largest_contributor",
		Top2Column:                 "second_largest_contributor",
	})
	require.Len(t, got, 3)
	for _, r := range got {
		top1, _ := r.Float("largest_contributor")
		top2, _ := r.Float("second_largest_contributor")
		require.Equal(t, 30.0, top1)
		require.Equal(t, 20.0, top2)
	}
}

func TestAddRegionlessMethod(t *testing.T) {
	data := `[{"region":"1","period":"202009","produced":5},
	          {"region":"2","period":"202009","produced":8}]`
	got := call(t, AddRegionless(quietLogger()), RegionPayload{
		Data:           json.RawMessage(data),
		RegionColumn:   "region",
		RegionlessCode: 14,
	})
	require.Len(t, got, 4)
	var sentinels int
	for _, r := range got {
		if v, ok := r.Float("region"); ok && v == 14 {
			sentinels++
		}
	}
	require.Equal(t, 2, sentinels, "one sentinel copy per original row")
}

func TestAddRegionlessEmptyBatch(t *testing.T) {
	res := AddRegionless(quietLogger())(context.Background(),
		json.RawMessage(`{"data":[],"region_column":"region","regionless_code":14}`))
	require.False(t, res.Success)
	require.True(t, strings.Contains(res.Error, "No data"), res.Error)
}

func TestInjectorRoundTrip(t *testing.T) {
	l := invoke.NewLocal()
	RegisterAll(l, quietLogger())

	inj := Injector{Invoker: l, RunID: "r3"}
	out, err := inj.InjectRegionless(context.Background(), records.Table{
		{"region": "1", "produced": 5.0},
	}, "region", 14)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestInjectorSurfacesMethodFailure(t *testing.T) {
	l := invoke.NewLocal()
	RegisterAll(l, quietLogger())

	// Missing region column makes the method fail inside its envelope.
	inj := Injector{Invoker: l}
	_, err := inj.InjectRegionless(context.Background(), records.Table{
		{"produced": 5.0},
	}, "region", 14)
	require.Error(t, err)
}
