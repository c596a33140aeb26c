package config

import (
	"os"
	"path/filepath"
	"testing"

	"surveyagg/internal/faults"
	"surveyagg/internal/queue"
	"surveyagg/internal/storage"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"checkpoint": 4,
		"storage": {"kind": "sqlite", "dsn": "agg.db"},
		"queue":   {"dsn": "agg.db"},
		"method":  {"kind": "local"},
		"notify":  {"kind": "log"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Checkpoint != 4 || cfg.Storage.Kind != "sqlite" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
checkpoint: 4
storage:
  kind: postgres
  dsn: postgresql://localhost/agg
queue:
  dsn: agg.db
method:
  kind: http
  base_url: http://methods.internal
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Kind != "postgres" || cfg.Method.BaseURL != "http://methods.internal" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidateCleanConfig(t *testing.T) {
	cfg := Config{
		Checkpoint: 4,
		Storage:    stor("sqlite", "agg.db"),
		Queue:      q("agg.db"),
		Method:     Method{Kind: "local"},
		Notify:     Notify{Kind: "log"},
	}
	if issues := Validate(cfg); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestValidateFindings(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		path string
	}{
		{"missing storage kind", Config{Queue: q("x")}, "storage.kind"},
		{"unknown storage kind", Config{Storage: stor("tape", "x"), Queue: q("x")}, "storage.kind"},
		{"storage without dsn", Config{Storage: stor("sqlite", ""), Queue: q("x")}, "storage.dsn"},
		{"queue without dsn", Config{Storage: stor("sqlite", "x")}, "queue.dsn"},
		{"http method without url", Config{Storage: stor("sqlite", "x"), Queue: q("x"), Method: Method{Kind: "http"}}, "method.base_url"},
		{"webhook without url", Config{Storage: stor("sqlite", "x"), Queue: q("x"), Notify: Notify{Kind: "webhook"}}, "notify.url"},
		{"unknown metrics backend", Config{Storage: stor("sqlite", "x"), Queue: q("x"), Metrics: Metrics{Backend: "graphite"}}, "metrics.backend"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issues := Validate(tc.cfg)
			if !HasError(issues) {
				t.Fatalf("expected an error issue, got %v", issues)
			}
			var found bool
			for _, i := range issues {
				if i.Path == tc.path {
					found = true
				}
			}
			if !found {
				t.Fatalf("no issue at path %q in %v", tc.path, issues)
			}
		})
	}
}

func TestColumnRuntimeValidate(t *testing.T) {
	var r ColumnRuntime
	err := r.Validate()
	if !faults.Is(err, faults.InvalidParameter) {
		t.Fatalf("err = %v; want InvalidParameter", err)
	}

	r = ColumnRuntime{
		Period: "202009", PeriodColumn: "period", AggregationType: "sum",
		AggregatedColumn: "county", AdditionalAggregatedColumn: "region",
		TotalColumn: "Q608_total", CellTotalColumn: "county_total",
		InFileName: "in.json", OutFileName: "out.json", OutgoingMessageGroupID: "g",
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("complete runtime rejected: %v", err)
	}
}

func TestBricksRuntimeValidate(t *testing.T) {
	r := BricksRuntime{
		TotalColumns:           []string{"produced"},
		UniqueIdentifier:       []string{"brick_type", "region"},
		Factors:                Factors{RegionColumn: "region", RegionlessCode: 14},
		InFileName:             "in.json",
		IncomingMessageGroupID: "g",
		OutFileNameRegion:      "region.json",
		OutFileNameBricks:      "bricks.json",
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("complete runtime rejected: %v", err)
	}

	r.UniqueIdentifier = []string{"brick_type"}
	if err := r.Validate(); !faults.Is(err, faults.InvalidParameter) {
		t.Fatalf("short unique_identifier err = %v; want InvalidParameter", err)
	}
}

func stor(kind, dsn string) storage.Config {
	return storage.Config{Kind: kind, DSN: dsn}
}

func q(dsn string) queue.Config {
	return queue.Config{DSN: dsn}
}
