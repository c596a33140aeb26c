package wrangler

import (
	"context"

	"github.com/sirupsen/logrus"

	"surveyagg/internal/config"
	"surveyagg/internal/faults"
	"surveyagg/internal/method"
	"surveyagg/internal/metrics"
	payload "surveyagg/internal/parser/json"
	"surveyagg/pkg/records"
)

const columnModule = "Aggregation by column - Wrangler"

// Column drives one column-aggregation run: read the batch, keep the
// requested period, hand off to the column-totals method, persist the
// result for the downstream stage.
type Column struct {
	Deps
}

// Run executes the stage for one event.
func (w *Column) Run(ctx context.Context, rt config.ColumnRuntime) (faults.Result, error) {
	runID := ensureRunID(rt.RunID)
	entry := w.logger().WithFields(logrus.Fields{"module": columnModule, "run_id": runID})
	entry.Info("starting module")

	if err := step(columnModule, "validate", rt.Validate); err != nil {
		return fail(&w.Deps, columnModule, runID, err)
	}

	var in records.Table
	err := step(columnModule, "read_input", func() error {
		var err error
		in, err = readTable(ctx, w.Store, rt.InFileName)
		return err
	})
	if err != nil {
		return fail(&w.Deps, columnModule, runID, err)
	}
	metrics.RecordRows(columnModule, "received", int64(len(in)))

	// Only the requested survey period takes part in the run.
	kept := make(records.Table, 0, len(in))
	for _, r := range in {
		if cellMatches(r, rt.PeriodColumn, rt.Period) {
			kept = append(kept, r)
		}
	}
	entry.WithFields(logrus.Fields{"rows": len(kept), "period": rt.Period}).
		Info("filtered batch to period")
	if len(kept) == 0 {
		return fail(&w.Deps, columnModule, runID,
			faults.New(faults.NoData, "no rows for period %s", rt.Period))
	}

	data, err := payload.Encode(kept)
	if err != nil {
		return fail(&w.Deps, columnModule, runID, faults.Wrap(faults.General, err, "encode batch"))
	}

	var out []byte
	err = step(columnModule, "invoke_method", func() error {
		var err error
		out, err = invokeMethod(ctx, w.Invoker, method.NameColumnTotals, method.ColumnPayload{
			Data:                       data,
			TotalColumn:                rt.TotalColumn,
			AdditionalAggregatedColumn: rt.AdditionalAggregatedColumn,
			AggregatedColumn:           rt.AggregatedColumn,
			CellTotalColumn:            rt.CellTotalColumn,
			AggregationType:            rt.AggregationType,
			RunID:                      runID,
		})
		return err
	})
	if err != nil {
		return fail(&w.Deps, columnModule, runID, err)
	}

	// Output keys carry the reduced column name so the three parallel
	// column runs of a period do not clobber each other.
	outKey := rt.CellTotalColumn + "_" + rt.OutFileName
	err = step(columnModule, "persist_output", func() error {
		return saveData(ctx, &w.Deps, outKey, rt.OutgoingMessageGroupID, out)
	})
	if err != nil {
		return fail(&w.Deps, columnModule, runID, err)
	}

	return finish(ctx, &w.Deps, columnModule, runID)
}
