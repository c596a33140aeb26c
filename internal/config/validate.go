// This file adds a lightweight linter for Config values. It performs static
// checks over a decoded Config and returns a list of issues (errors and
// warnings) that the CLI surfaces before a run starts.
package config

import "fmt"

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not
	// block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "method.base_url"); Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where convenient.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate statically checks cfg and returns every finding. It does not
// mutate the config; callers decide whether warnings are fatal.
func Validate(cfg Config) []Issue {
	var issues []Issue
	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	switch cfg.Storage.Kind {
	case "sqlite", "postgres":
		if cfg.Storage.DSN == "" {
			errf("storage.dsn", "DSN is required for kind %q", cfg.Storage.Kind)
		}
	case "":
		errf("storage.kind", "storage kind is required")
	default:
		errf("storage.kind", "unknown storage kind %q", cfg.Storage.Kind)
	}

	if cfg.Queue.DSN == "" {
		errf("queue.dsn", "queue DSN is required")
	}

	switch cfg.Method.Kind {
	case "local", "":
		if cfg.Method.BaseURL != "" {
			warnf("method.base_url", "base_url is ignored for the local invoker")
		}
	case "http":
		if cfg.Method.BaseURL == "" {
			errf("method.base_url", "base_url is required for kind %q", cfg.Method.Kind)
		}
	default:
		errf("method.kind", "unknown method kind %q", cfg.Method.Kind)
	}

	switch cfg.Notify.Kind {
	case "log", "":
	case "webhook":
		if cfg.Notify.URL == "" {
			errf("notify.url", "url is required for kind %q", cfg.Notify.Kind)
		}
	default:
		errf("notify.kind", "unknown notify kind %q", cfg.Notify.Kind)
	}

	switch cfg.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		if cfg.Metrics.PushgatewayURL == "" {
			errf("metrics.pushgateway_url", "pushgateway_url is required for backend %q", cfg.Metrics.Backend)
		}
	case "datadog":
		if cfg.Metrics.DatadogAddr == "" {
			errf("metrics.datadog_addr", "datadog_addr is required for backend %q", cfg.Metrics.Backend)
		}
	default:
		errf("metrics.backend", "unknown metrics backend %q", cfg.Metrics.Backend)
	}

	if cfg.Checkpoint < 0 {
		errf("checkpoint", "checkpoint must not be negative")
	}

	return issues
}

// HasError reports whether any issue is of error severity.
func HasError(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
