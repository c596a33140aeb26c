// Package config defines the deployment configuration for the aggregation
// runner and the per-run runtime variables each wrangler receives.
//
// Two layers mirror the split the orchestrator works with:
//
//   - Config is per-deployment: which store, queue, method endpoint,
//     notifier, and metrics backend to use, plus the pipeline checkpoint.
//     It is loaded once from a JSON or YAML file.
//   - Runtime variables are per-invocation: column names, file names, and
//     codes for one batch. They arrive inside the event document under
//     "RuntimeVariables" and are validated before a run starts.
//
// Field names in Go mirror the JSON/YAML structure of the config files, so
// a config can be read alongside this file without translation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"surveyagg/internal/queue"
	"surveyagg/internal/storage"
)

// Config is the top-level deployment configuration.
type Config struct {
	// Checkpoint is reported in the completion notice so the orchestrator
	// can resume a halted pipeline at the right stage.
	Checkpoint int `json:"checkpoint" yaml:"checkpoint"`

	Storage storage.Config `json:"storage" yaml:"storage"`
	Queue   queue.Config   `json:"queue" yaml:"queue"`
	Method  Method         `json:"method" yaml:"method"`
	Notify  Notify         `json:"notify" yaml:"notify"`
	Metrics Metrics        `json:"metrics" yaml:"metrics"`
}

// Method selects how paired methods are invoked.
type Method struct {
	// Kind is "local" (in-process handlers) or "http".
	Kind string `json:"kind" yaml:"kind"`
	// BaseURL is the method endpoint for the "http" kind.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Timeout bounds one invocation; zero uses the client default.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Notify selects the completion notifier.
type Notify struct {
	// Kind is "log" or "webhook".
	Kind string `json:"kind" yaml:"kind"`
	// URL is the webhook endpoint for the "webhook" kind.
	URL string `json:"url" yaml:"url"`
	// Timeout bounds one publish; zero uses the notifier default.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway", or "datadog".
	Backend string `json:"backend" yaml:"backend"`
	// Job is the Pushgateway job name.
	Job string `json:"job" yaml:"job"`
	// PushgatewayURL is the Pushgateway base URL.
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	// DatadogAddr is the DogStatsD address.
	DatadogAddr string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Load reads a Config from path, decoding JSON or YAML by extension
// (.yaml/.yml is YAML, everything else JSON).
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	return cfg, nil
}
