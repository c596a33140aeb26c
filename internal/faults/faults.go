// Package faults defines the error taxonomy shared by the transforms and the
// wranglers, plus the JSON result envelope returned across the invocation
// boundary.
//
// Every failure in a run is classified into one of a small set of kinds so
// the orchestrator can distinguish data problems (missing column, empty
// batch) from parameter problems and collaborator failures. Faults carry a
// human-readable message and wrap an underlying error where one exists;
// nothing here retries.
package faults

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// General is any failure not covered by a more specific kind.
	General Kind = iota
	// MissingColumn means a referenced column is absent from the batch.
	MissingColumn
	// InvalidParameter means a runtime parameter is malformed or names an
	// unrecognized option (e.g. an unknown reduction).
	InvalidParameter
	// NoData means the input batch was empty or contained nothing usable.
	NoData
	// ExternalCall means a collaborator (method invocation, store, queue,
	// notifier) reported failure or returned an unusable response.
	ExternalCall
)

func (k Kind) String() string {
	switch k {
	case MissingColumn:
		return "missing column"
	case InvalidParameter:
		return "invalid parameter"
	case NoData:
		return "no data"
	case ExternalCall:
		return "external call failure"
	default:
		return "general error"
	}
}

// Fault is a classified pipeline failure.
type Fault struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Msg, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

func (f *Fault) Unwrap() error { return f.Err }

// New builds a Fault with a formatted message.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a Fault around an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Missing reports absent columns as a MissingColumn fault.
func Missing(cols []string) *Fault {
	return New(MissingColumn, "column(s) not found in batch: %s", strings.Join(cols, ", "))
}

// KindOf extracts the Kind from err, or General when err is not a Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return General
}

// Is reports whether err is a Fault of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Describe renders the operator-facing failure line for a run: the module
// name, the classified message, and the run id. This is the single format
// surfaced to logs and to the orchestrator.
func Describe(err error, module, runID string) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s in %s |- %s | run_id: %s",
		label(KindOf(err)), module, err.Error(), runID)
}

func label(k Kind) string {
	switch k {
	case MissingColumn:
		return "Key Error"
	case InvalidParameter:
		return "Parameter validation error"
	case NoData:
		return "No data"
	case ExternalCall:
		return "Method failure"
	default:
		return "General Error"
	}
}

// Result is the envelope returned by every wrangler and method invocation.
// Exactly one of Data/Error is populated depending on Success.
type Result struct {
	Success    bool            `json:"success"`
	Checkpoint int             `json:"checkpoint,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
}
