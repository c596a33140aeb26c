package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"surveyagg/internal/config"
	"surveyagg/internal/faults"
	"surveyagg/internal/invoke"
	"surveyagg/internal/method"
	"surveyagg/internal/metrics"
	"surveyagg/internal/metrics/datadog"
	"surveyagg/internal/metrics/prompush"
	"surveyagg/internal/notify"
	"surveyagg/internal/queue"
	"surveyagg/internal/storage"
	"surveyagg/internal/wrangler"

	// register all backends with the storage factory.
	_ "surveyagg/internal/storage/all"
)

var eventPath string

// runCmd executes one wrangler against an event document
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one aggregation stage",
	Long: `Execute one aggregation stage for the event document given with --event.

The event carries the per-run parameters under "RuntimeVariables", the same
envelope the pipeline orchestrator sends. The run's result envelope is
written to stdout; a failed run also exits nonzero.`,
}

var runColumnCmd = &cobra.Command{
	Use:   "column",
	Short: "Aggregate a value column per group for one period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), func(ctx context.Context, deps wrangler.Deps) (faults.Result, error) {
			rt, err := decodeEvent[config.ColumnRuntime]()
			if err != nil {
				return faults.Result{}, err
			}
			w := &wrangler.Column{Deps: deps}
			return w.Run(ctx, rt)
		})
	},
}

var runTopTwoCmd = &cobra.Command{
	Use:   "top-two",
	Short: "Broadcast the two largest contributors per group",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), func(ctx context.Context, deps wrangler.Deps) (faults.Result, error) {
			rt, err := decodeEvent[config.TopTwoRuntime]()
			if err != nil {
				return faults.Result{}, err
			}
			w := &wrangler.TopTwo{Deps: deps}
			return w.Run(ctx, rt)
		})
	},
}

var runBricksCmd = &cobra.Command{
	Use:   "bricks",
	Short: "Consolidate brick type columns and aggregate by region and type",
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), func(ctx context.Context, deps wrangler.Deps) (faults.Result, error) {
			rt, err := decodeEvent[config.BricksRuntime]()
			if err != nil {
				return faults.Result{}, err
			}
			w := &wrangler.Bricks{Deps: deps}
			return w.Run(ctx, rt)
		})
	},
}

func init() {
	runCmd.PersistentFlags().StringVarP(&eventPath, "event", "e", "-",
		"event document path, or - for stdin")
	runCmd.AddCommand(runColumnCmd, runTopTwoCmd, runBricksCmd)
}

// execute wires the configured collaborators, runs one wrangler, and emits
// the result envelope.
func execute(ctx context.Context, run func(context.Context, wrangler.Deps) (faults.Result, error)) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if issues := config.Validate(cfg); config.HasError(issues) {
		for _, iss := range issues {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
		return fmt.Errorf("config %s has errors", cfgPath)
	}

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	res, runErr := run(ctx, deps)
	out, err := json.Marshal(res)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return runErr
}

// decodeEvent reads the event document and extracts its runtime variables.
func decodeEvent[T any]() (T, error) {
	var ev config.Event[T]
	var body []byte
	var err error
	if eventPath == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(eventPath)
	}
	if err != nil {
		return ev.RuntimeVariables, fmt.Errorf("read event: %w", err)
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev.RuntimeVariables, fmt.Errorf("decode event: %w", err)
	}
	return ev.RuntimeVariables, nil
}

// buildDeps constructs the wrangler collaborators from the deployment
// config. The returned cleanup flushes metrics and closes the backends.
func buildDeps(ctx context.Context, cfg config.Config) (wrangler.Deps, func(), error) {
	store, closeStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return wrangler.Deps{}, nil, err
	}

	q, closeQueue, err := queue.OpenSQLite(ctx, cfg.Queue)
	if err != nil {
		closeStore()
		return wrangler.Deps{}, nil, err
	}

	var inv invoke.Invoker
	switch cfg.Method.Kind {
	case "", "local":
		l := invoke.NewLocal()
		method.RegisterAll(l, log)
		inv = l
	case "http":
		inv, err = invoke.NewClient(cfg.Method.BaseURL, cfg.Method.Timeout)
	default:
		err = fmt.Errorf("unknown method kind %q", cfg.Method.Kind)
	}
	if err != nil {
		closeQueue()
		closeStore()
		return wrangler.Deps{}, nil, err
	}

	var notifier notify.Notifier
	switch cfg.Notify.Kind {
	case "", "log":
		notifier = notify.Log{Logger: log}
	case "webhook":
		notifier, err = notify.NewWebhook(cfg.Notify.URL, cfg.Notify.Timeout)
	default:
		err = fmt.Errorf("unknown notify kind %q", cfg.Notify.Kind)
	}
	if err != nil {
		closeQueue()
		closeStore()
		return wrangler.Deps{}, nil, err
	}

	switch cfg.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		b, err := prompush.NewBackend(cfg.Metrics.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			closeQueue()
			closeStore()
			return wrangler.Deps{}, nil, err
		}
		metrics.SetBackend(b)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: cfg.Metrics.DatadogAddr})
		if err != nil {
			closeQueue()
			closeStore()
			return wrangler.Deps{}, nil, err
		}
		metrics.SetBackend(b)
	default:
		closeQueue()
		closeStore()
		return wrangler.Deps{}, nil, fmt.Errorf("unknown metrics backend %q", cfg.Metrics.Backend)
	}

	cleanup := func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics flush failed")
		}
		closeQueue()
		closeStore()
	}
	deps := wrangler.Deps{
		Store:      store,
		Queue:      q,
		Invoker:    inv,
		Notifier:   notifier,
		Log:        log,
		Checkpoint: cfg.Checkpoint,
	}
	return deps, cleanup, nil
}
