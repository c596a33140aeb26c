package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"fault kind", New(InvalidParameter, "bad reduction %q", "median"), InvalidParameter},
		{"wrapped fault", fmt.Errorf("outer: %w", Missing([]string{"county"})), MissingColumn},
		{"plain error", errors.New("boom"), General},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestDescribeFormat(t *testing.T) {
	err := Missing([]string{"period", "county"})
	got := Describe(err, "Aggregation by column - Wrangler", "run-7")
	for _, want := range []string{"Key Error", "Aggregation by column - Wrangler", "period, county", "run_id: run-7"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Describe = %q; missing %q", got, want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ExternalCall, cause, "invoke %s", "top-two")
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must survive errors.Is")
	}
	if !Is(err, ExternalCall) {
		t.Fatal("kind must be ExternalCall")
	}
}
