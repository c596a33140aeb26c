// Package invoke is the synchronous boundary between a wrangler and its
// paired method. A wrangler builds a JSON payload, invokes the method by
// name, and blocks on the typed result envelope: a plain function call or
// an HTTP round trip, never a queue-and-poll loop.
//
// Two implementations exist: Local dispatches to handlers registered in
// process (the default deployment, and what tests use); Client performs an
// HTTP POST for methods deployed behind a remote endpoint.
package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	"surveyagg/internal/faults"
)

// Handler is an in-process method implementation. It receives the raw JSON
// payload and returns the result envelope; transport-level problems are
// impossible locally, so there is no error return.
type Handler func(ctx context.Context, payload json.RawMessage) faults.Result

// Invoker synchronously invokes a named method.
//
// The error return covers the transport only (method unknown, endpoint
// unreachable, bad response body). A method that ran and failed reports
// through the envelope's Success/Error fields instead, and callers must
// check both.
type Invoker interface {
	Invoke(ctx context.Context, name string, payload any) (faults.Result, error)
}

// Local dispatches invocations to registered in-process handlers.
type Local struct {
	handlers map[string]Handler
}

// NewLocal builds an empty local invoker.
func NewLocal() *Local {
	return &Local{handlers: map[string]Handler{}}
}

// Register installs h under name, replacing any previous handler.
func (l *Local) Register(name string, h Handler) {
	l.handlers[name] = h
}

// Invoke marshals payload and calls the named handler.
func (l *Local) Invoke(ctx context.Context, name string, payload any) (faults.Result, error) {
	h, ok := l.handlers[name]
	if !ok {
		return faults.Result{}, fmt.Errorf("invoke: unknown method %q", name)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return faults.Result{}, fmt.Errorf("invoke: marshal payload for %q: %w", name, err)
	}
	return h(ctx, b), nil
}
