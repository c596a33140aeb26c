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

const topTwoModule = "Aggregation Calc Top Two - Wrangler"

// TopTwo drives one top-two-contributors run: read the batch, hand off to
// the top-two method, persist the ranked result.
type TopTwo struct {
	Deps
}

// Run executes the stage for one event.
func (w *TopTwo) Run(ctx context.Context, rt config.TopTwoRuntime) (faults.Result, error) {
	runID := ensureRunID(rt.RunID)
	entry := w.logger().WithFields(logrus.Fields{"module": topTwoModule, "run_id": runID})
	entry.Info("starting module")

	if err := step(topTwoModule, "validate", rt.Validate); err != nil {
		return fail(&w.Deps, topTwoModule, runID, err)
	}

	var in records.Table
	err := step(topTwoModule, "read_input", func() error {
		var err error
		in, err = readTable(ctx, w.Store, rt.InFileName)
		return err
	})
	if err != nil {
		return fail(&w.Deps, topTwoModule, runID, err)
	}
	metrics.RecordRows(topTwoModule, "received", int64(len(in)))

	data, err := payload.Encode(in)
	if err != nil {
		return fail(&w.Deps, topTwoModule, runID, faults.Wrap(faults.General, err, "encode batch"))
	}

	var out []byte
	err = step(topTwoModule, "invoke_method", func() error {
		var err error
		out, err = invokeMethod(ctx, w.Invoker, method.NameTopTwo, method.TopTwoPayload{
			Data:                       data,
			PeriodColumn:               rt.PeriodColumn,
			AggregatedColumn:           rt.AggregatedColumn,
			AdditionalAggregatedColumn: rt.AdditionalAggregatedColumn,
			TotalColumn:                rt.TotalColumn,
			Top1Column:                 rt.Top1Column,
			Top2Column:                 rt.Top2Column,
			RunID:                      runID,
		})
		return err
	})
	if err != nil {
		return fail(&w.Deps, topTwoModule, runID, err)
	}

	err = step(topTwoModule, "persist_output", func() error {
		return saveData(ctx, &w.Deps, rt.OutFileName, rt.OutgoingMessageGroupID, out)
	})
	if err != nil {
		return fail(&w.Deps, topTwoModule, runID, err)
	}

	return finish(ctx, &w.Deps, topTwoModule, runID)
}
