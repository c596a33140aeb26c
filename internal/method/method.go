// Package method implements the paired statistical methods the wranglers
// invoke: column totals, top-two contributors, and the regionless sentinel
// injection used by the brick consolidation. Each method receives a JSON
// payload carrying the batch and its parameters and answers with the result
// envelope, so the same implementations serve both the in-process invoker
// and an HTTP deployment.
package method

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"surveyagg/internal/dataset"
	"surveyagg/internal/faults"
	"surveyagg/internal/invoke"
	payload "surveyagg/internal/parser/json"
	"surveyagg/pkg/records"
)

// Method names used for registration and remote routing.
const (
	NameColumnTotals  = "column-totals"
	NameTopTwo        = "top-two"
	NameAddRegionless = "add-regionless"
)

// ColumnPayload is the column-totals method request.
type ColumnPayload struct {
	Data                       json.RawMessage `json:"data"`
	TotalColumn                string          `json:"total_column"`
	AdditionalAggregatedColumn string          `json:"additional_aggregated_column"`
	AggregatedColumn           string          `json:"aggregated_column"`
	CellTotalColumn            string          `json:"cell_total_column"`
	AggregationType            string          `json:"aggregation_type"`
	RunID                      string          `json:"run_id"`
}

// TopTwoPayload is the top-two method request.
type TopTwoPayload struct {
	Data                       json.RawMessage `json:"data"`
	PeriodColumn               string          `json:"period_column"`
	AggregatedColumn           string          `json:"aggregated_column"`
	AdditionalAggregatedColumn string          `json:"additional_aggregated_column"`
	TotalColumn                string          `json:"total_column"`
	Top1Column                 string          `json:"top1_column"`
	Top2Column                 string          `json:"top2_column"`
	RunID                      string          `json:"run_id"`
}

// RegionPayload is the add-regionless method request.
type RegionPayload struct {
	Data           json.RawMessage `json:"data"`
	RegionColumn   string          `json:"region_column"`
	RegionlessCode int             `json:"regionless_code"`
	RunID          string          `json:"run_id"`
}

// RegisterAll installs every method on the local invoker.
func RegisterAll(l *invoke.Local, log *logrus.Logger) {
	l.Register(NameColumnTotals, ColumnTotals(log))
	l.Register(NameTopTwo, TopTwo(log))
	l.Register(NameAddRegionless, AddRegionless(log))
}

// ColumnTotals builds the column-totals handler.
func ColumnTotals(log *logrus.Logger) invoke.Handler {
	const module = "Aggregation by column - Method"
	return func(ctx context.Context, raw json.RawMessage) faults.Result {
		var p ColumnPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fail(log, module, "", faults.Wrap(faults.InvalidParameter, err, "decode payload"))
		}
		entry := log.WithFields(logrus.Fields{"module": module, "run_id": p.RunID})
		entry.Info("method begun")

		table, err := payload.DecodeBytes(p.Data)
		if err != nil {
			return fail(log, module, p.RunID, faults.Wrap(faults.InvalidParameter, err, "decode batch"))
		}
		out, err := dataset.Aggregate(table, dataset.ColumnParams{
			AggregatedColumn: p.AggregatedColumn,
			AdditionalColumn: p.AdditionalAggregatedColumn,
			TotalColumn:      p.TotalColumn,
			CellTotalColumn:  p.CellTotalColumn,
			AggregationType:  p.AggregationType,
		})
		if err != nil {
			return fail(log, module, p.RunID, err)
		}
		entry.WithField("rows", len(out)).Info("totals calculated")
		return succeed(log, module, p.RunID, out)
	}
}

// TopTwo builds the top-two contributors handler.
func TopTwo(log *logrus.Logger) invoke.Handler {
	const module = "Aggregation Calc Top Two - Method"
	return func(ctx context.Context, raw json.RawMessage) faults.Result {
		var p TopTwoPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fail(log, module, "", faults.Wrap(faults.InvalidParameter, err, "decode payload"))
		}
		entry := log.WithFields(logrus.Fields{"module": module, "run_id": p.RunID})
		entry.Info("method begun")

		table, err := payload.DecodeBytes(p.Data)
		if err != nil {
			return fail(log, module, p.RunID, faults.Wrap(faults.InvalidParameter, err, "decode batch"))
		}
		out, err := dataset.RankTopTwo(table, dataset.TopTwoParams{
			PeriodColumn:     p.PeriodColumn,
			AggregatedColumn: p.AggregatedColumn,
			AdditionalColumn: p.AdditionalAggregatedColumn,
			TotalColumn:      p.TotalColumn,
			Top1Column:       p.Top1Column,
			Top2Column:       p.Top2Column,
		})
		if err != nil {
			return fail(log, module, p.RunID, err)
		}
		entry.WithField("rows", len(out)).Info("top two calculated")
		return succeed(log, module, p.RunID, out)
	}
}

// AddRegionless builds the region-injection handler. It appends one copy of
// every row with the region column recoded to the regionless sentinel; the
// wrangler's subsequent group-by collapses the copies into one total row per
// key group.
func AddRegionless(log *logrus.Logger) invoke.Handler {
	const module = "Add Regionless - Method"
	return func(ctx context.Context, raw json.RawMessage) faults.Result {
		var p RegionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fail(log, module, "", faults.Wrap(faults.InvalidParameter, err, "decode payload"))
		}
		entry := log.WithFields(logrus.Fields{"module": module, "run_id": p.RunID})
		entry.Info("method begun")

		table, err := payload.DecodeBytes(p.Data)
		if err != nil {
			return fail(log, module, p.RunID, faults.Wrap(faults.InvalidParameter, err, "decode batch"))
		}
		if len(table) == 0 {
			return fail(log, module, p.RunID, faults.New(faults.NoData, "input batch is empty"))
		}
		if p.RegionColumn == "" {
			return fail(log, module, p.RunID, faults.New(faults.InvalidParameter, "region_column is required"))
		}
		if missing := table.MissingColumns(p.RegionColumn); len(missing) > 0 {
			return fail(log, module, p.RunID, faults.Missing(missing))
		}

		out := table.Clone()
		for _, r := range table {
			cp := r.Clone()
			cp[p.RegionColumn] = p.RegionlessCode
			out = append(out, cp)
		}
		entry.WithField("rows", len(out)).Info("regionless rows appended")
		return succeed(log, module, p.RunID, out)
	}
}

func succeed(log *logrus.Logger, module, runID string, t records.Table) faults.Result {
	b, err := payload.Encode(t)
	if err != nil {
		return fail(log, module, runID, faults.Wrap(faults.General, err, "encode output"))
	}
	log.WithFields(logrus.Fields{"module": module, "run_id": runID}).Info("successfully completed module")
	return faults.Result{Success: true, Data: b}
}

func fail(log *logrus.Logger, module, runID string, err error) faults.Result {
	msg := faults.Describe(err, module, runID)
	log.WithFields(logrus.Fields{"module": module, "run_id": runID}).Error(msg)
	return faults.Result{Success: false, Error: msg}
}
