// Package wrangler orchestrates one aggregation run per invocation: it
// validates the runtime variables, acquires the input batch from the object
// store (and queue, where the stage is queue-fed), invokes the paired
// statistical method across the invocation boundary, persists the output
// batches, and publishes the completion notice.
//
// The column and top-two transforms live entirely behind the invoked
// methods; the bricks wrangler runs the consolidation in process and only
// crosses the invocation boundary for the region-injection collaborator.
// A failure at any step aborts the run with a structured result
// and persists nothing further. There are no partial outputs and no
// internal retries.
package wrangler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"surveyagg/internal/faults"
	"surveyagg/internal/invoke"
	"surveyagg/internal/metrics"
	"surveyagg/internal/notify"
	payload "surveyagg/internal/parser/json"
	"surveyagg/internal/queue"
	"surveyagg/internal/storage"
	"surveyagg/pkg/records"
)

// Deps are the collaborators a wrangler runs against. All are required
// except Log, which defaults to the standard logrus logger.
type Deps struct {
	Store      storage.Repository
	Queue      queue.Queue
	Invoker    invoke.Invoker
	Notifier   notify.Notifier
	Log        *logrus.Logger
	Checkpoint int
}

func (d *Deps) logger() *logrus.Logger {
	if d.Log == nil {
		return logrus.StandardLogger()
	}
	return d.Log
}

// pointer is the queue message body: a reference to the stored batch rather
// than the batch itself.
type pointer struct {
	Key string `json:"key"`
}

// ensureRunID fills in a fresh UUID when the event carried none.
func ensureRunID(runID string) string {
	if runID == "" {
		return uuid.NewString()
	}
	return runID
}

// step runs fn and records its latency and outcome under the given name.
func step(module, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(module, name, err, time.Since(start))
	return err
}

// readTable fetches and decodes the stored batch under key.
func readTable(ctx context.Context, store storage.Repository, key string) (records.Table, error) {
	body, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, faults.Wrap(faults.NoData, err, "input batch %q", key)
		}
		return nil, faults.Wrap(faults.ExternalCall, err, "read input batch %q", key)
	}
	t, err := payload.DecodeBytes(body)
	if err != nil {
		return nil, faults.Wrap(faults.InvalidParameter, err, "decode input batch %q", key)
	}
	return t, nil
}

// invokeMethod performs one synchronous method call and classifies both
// transport errors and envelope failures as external-call faults.
func invokeMethod(ctx context.Context, inv invoke.Invoker, name string, p any) (json.RawMessage, error) {
	res, err := inv.Invoke(ctx, name, p)
	if err != nil {
		return nil, faults.Wrap(faults.ExternalCall, err, "invoke %s", name)
	}
	if !res.Success {
		return nil, faults.New(faults.ExternalCall, "%s reported failure: %s", name, res.Error)
	}
	return res.Data, nil
}

// saveData persists body under key and enqueues a pointer for the next
// stage, mirroring the save-then-notify handoff convention.
func saveData(ctx context.Context, d *Deps, key, groupID string, body []byte) error {
	if err := d.Store.Put(ctx, key, body); err != nil {
		return faults.Wrap(faults.ExternalCall, err, "persist output %q", key)
	}
	msg, err := json.Marshal(pointer{Key: key})
	if err != nil {
		return faults.Wrap(faults.General, err, "marshal pointer for %q", key)
	}
	if err := d.Queue.Send(ctx, groupID, msg); err != nil {
		return faults.Wrap(faults.ExternalCall, err, "enqueue pointer for %q", key)
	}
	return nil
}

// finish publishes the completion notice and builds the success envelope.
func finish(ctx context.Context, d *Deps, module, runID string) (faults.Result, error) {
	n := notify.Notice{Module: module, Checkpoint: d.Checkpoint, RunID: runID}
	if err := d.Notifier.Publish(ctx, n); err != nil {
		return fail(d, module, runID, faults.Wrap(faults.ExternalCall, err, "publish completion notice"))
	}
	d.logger().WithFields(logrus.Fields{"module": module, "run_id": runID}).
		Info("successfully completed module")
	metrics.RecordRun(module, nil)
	return faults.Result{Success: true, Checkpoint: d.Checkpoint}, nil
}

// fail logs the classified failure and builds the failure envelope. The
// error is returned alongside so callers can branch on its kind.
func fail(d *Deps, module, runID string, err error) (faults.Result, error) {
	msg := faults.Describe(err, module, runID)
	d.logger().WithFields(logrus.Fields{"module": module, "run_id": runID}).Error(msg)
	metrics.RecordRun(module, err)
	return faults.Result{Success: false, Error: msg}, err
}

// cellMatches compares a cell against a parameter value using the same
// stabilized rendering the group keys use, so "202009" matches both the
// string and the numeric form of the period.
func cellMatches(r records.Record, col, want string) bool {
	return r.Key([]string{col}) == want
}
