package wrangler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"surveyagg/internal/config"
	"surveyagg/internal/dataset"
	"surveyagg/internal/faults"
	"surveyagg/internal/method"
	"surveyagg/internal/metrics"
	payload "surveyagg/internal/parser/json"
	"surveyagg/internal/queue"
	"surveyagg/pkg/records"
)

const bricksModule = "Bricks Consolidation - Wrangler"

// Bricks drives one brick-consolidation run. The stage is queue-fed: the
// upstream batch arrives as a pointer message, with a direct store read as
// the fallback when no message is waiting. Both consolidated outputs are
// persisted concurrently, and the consumed message is deleted only after
// both persists succeed.
type Bricks struct {
	Deps
}

// Run executes the stage for one event.
func (w *Bricks) Run(ctx context.Context, rt config.BricksRuntime) (faults.Result, error) {
	runID := ensureRunID(rt.RunID)
	entry := w.logger().WithFields(logrus.Fields{"module": bricksModule, "run_id": runID})
	entry.Info("starting module")

	if err := step(bricksModule, "validate", rt.Validate); err != nil {
		return fail(&w.Deps, bricksModule, runID, err)
	}

	var (
		in      records.Table
		receipt string
	)
	err := step(bricksModule, "read_input", func() error {
		var err error
		in, receipt, err = w.acquire(ctx, rt)
		return err
	})
	if err != nil {
		return fail(&w.Deps, bricksModule, runID, err)
	}
	metrics.RecordRows(bricksModule, "received", int64(len(in)))

	inj := method.Injector{Invoker: w.Invoker, RunID: runID}
	params := dataset.BrickParams{
		TotalColumns:     rt.TotalColumns,
		UniqueIdentifier: rt.UniqueIdentifier,
		RegionColumn:     rt.Factors.RegionColumn,
		RegionlessCode:   rt.Factors.RegionlessCode,
	}

	var region, brick records.Table
	var pruned int
	err = step(bricksModule, "consolidate", func() error {
		var err error
		region, brick, pruned, err = dataset.Consolidate(ctx, in, params, inj)
		return err
	})
	metrics.RecordRows(bricksModule, "pruned", int64(pruned))
	if err != nil {
		return fail(&w.Deps, bricksModule, runID, err)
	}
	metrics.RecordRows(bricksModule, "aggregated", int64(len(region)+len(brick)))

	err = step(bricksModule, "persist_output", func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return w.persist(gctx, rt.OutFileNameRegion, region) })
		g.Go(func() error { return w.persist(gctx, rt.OutFileNameBricks, brick) })
		return g.Wait()
	})
	if err != nil {
		return fail(&w.Deps, bricksModule, runID, err)
	}

	if receipt != "" {
		if err := w.Queue.Delete(ctx, receipt); err != nil {
			return fail(&w.Deps, bricksModule, runID,
				faults.Wrap(faults.ExternalCall, err, "delete consumed message"))
		}
	}

	return finish(ctx, &w.Deps, bricksModule, runID)
}

// acquire fetches the input batch. A waiting queue message names the stored
// batch to read; an empty queue falls back to the configured input key.
func (w *Bricks) acquire(ctx context.Context, rt config.BricksRuntime) (records.Table, string, error) {
	key := rt.InFileName
	receipt := ""
	msg, err := w.Queue.Receive(ctx, rt.IncomingMessageGroupID)
	switch {
	case err == nil:
		var p pointer
		if err := json.Unmarshal(msg.Body, &p); err != nil {
			return nil, "", faults.Wrap(faults.InvalidParameter, err, "decode queue message")
		}
		key, receipt = p.Key, msg.Receipt
	case errors.Is(err, queue.ErrEmpty):
		// fall through to the direct read
	default:
		return nil, "", faults.Wrap(faults.ExternalCall, err, "receive message")
	}

	t, err := readTable(ctx, w.Store, key)
	if err != nil {
		return nil, "", err
	}
	return t, receipt, nil
}

func (w *Bricks) persist(ctx context.Context, key string, t records.Table) error {
	body, err := payload.Encode(t)
	if err != nil {
		return faults.Wrap(faults.General, err, "encode output %q", key)
	}
	if err := w.Store.Put(ctx, key, body); err != nil {
		return faults.Wrap(faults.ExternalCall, err, "persist output %q", key)
	}
	return nil
}
