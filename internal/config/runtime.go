package config

import (
	"sort"
	"strings"

	"surveyagg/internal/faults"
)

// Event is the envelope an invocation arrives in. The concrete runtime
// variables are decoded per wrangler kind.
type Event[T any] struct {
	RuntimeVariables T `json:"RuntimeVariables"`
}

// ColumnRuntime parameterizes one column-aggregation run.
type ColumnRuntime struct {
	RunID                      string `json:"run_id"`
	Period                     string `json:"period"`
	PeriodColumn               string `json:"period_column"`
	AggregationType            string `json:"aggregation_type"`
	AggregatedColumn           string `json:"aggregated_column"`
	AdditionalAggregatedColumn string `json:"additional_aggregated_column"`
	TotalColumn                string `json:"total_column"`
	CellTotalColumn            string `json:"cell_total_column"`
	InFileName                 string `json:"in_file_name"`
	OutFileName                string `json:"out_file_name"`
	OutgoingMessageGroupID     string `json:"outgoing_message_group_id"`
}

// Validate reports every absent required field at once, the way the
// original environment-schema validation did.
func (r ColumnRuntime) Validate() error {
	return requireAll(map[string]string{
		"period":                       r.Period,
		"period_column":                r.PeriodColumn,
		"aggregation_type":             r.AggregationType,
		"aggregated_column":            r.AggregatedColumn,
		"additional_aggregated_column": r.AdditionalAggregatedColumn,
		"total_column":                 r.TotalColumn,
		"cell_total_column":            r.CellTotalColumn,
		"in_file_name":                 r.InFileName,
		"out_file_name":                r.OutFileName,
		"outgoing_message_group_id":    r.OutgoingMessageGroupID,
	})
}

// TopTwoRuntime parameterizes one top-two-contributors run.
type TopTwoRuntime struct {
	RunID                      string `json:"run_id"`
	PeriodColumn               string `json:"period_column"`
	AggregatedColumn           string `json:"aggregated_column"`
	AdditionalAggregatedColumn string `json:"additional_aggregated_column"`
	TotalColumn                string `json:"total_column"`
	Top1Column                 string `json:"top1_column"`
	Top2Column                 string `json:"top2_column"`
	InFileName                 string `json:"in_file_name"`
	OutFileName                string `json:"out_file_name"`
	OutgoingMessageGroupID     string `json:"outgoing_message_group_id"`
}

func (r TopTwoRuntime) Validate() error {
	return requireAll(map[string]string{
		"period_column":                r.PeriodColumn,
		"aggregated_column":            r.AggregatedColumn,
		"additional_aggregated_column": r.AdditionalAggregatedColumn,
		"total_column":                 r.TotalColumn,
		"top1_column":                  r.Top1Column,
		"top2_column":                  r.Top2Column,
		"in_file_name":                 r.InFileName,
		"out_file_name":                r.OutFileName,
		"outgoing_message_group_id":    r.OutgoingMessageGroupID,
	})
}

// Factors carries the region-injection parameters for the bricks run.
type Factors struct {
	RegionColumn   string `json:"region_column"`
	RegionlessCode int    `json:"regionless_code"`
}

// BricksRuntime parameterizes one brick-consolidation run.
type BricksRuntime struct {
	RunID                  string   `json:"run_id"`
	TotalColumns           []string `json:"total_columns"`
	UniqueIdentifier       []string `json:"unique_identifier"`
	Factors                Factors  `json:"factors_parameters"`
	InFileName             string   `json:"in_file_name"`
	IncomingMessageGroupID string   `json:"incoming_message_group_id"`
	OutFileNameRegion      string   `json:"out_file_name_region"`
	OutFileNameBricks      string   `json:"out_file_name_bricks"`
}

func (r BricksRuntime) Validate() error {
	missing := missingKeys(map[string]string{
		"in_file_name":                     r.InFileName,
		"incoming_message_group_id":        r.IncomingMessageGroupID,
		"out_file_name_region":             r.OutFileNameRegion,
		"out_file_name_bricks":             r.OutFileNameBricks,
		"factors_parameters.region_column": r.Factors.RegionColumn,
	})
	if len(r.TotalColumns) == 0 {
		missing = append(missing, "total_columns")
	}
	if len(r.UniqueIdentifier) < 2 {
		missing = append(missing, "unique_identifier")
	}
	return missingError(missing)
}

func requireAll(fields map[string]string) error {
	return missingError(missingKeys(fields))
}

func missingKeys(fields map[string]string) []string {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return faults.New(faults.InvalidParameter,
		"error validating runtime params: missing %s", strings.Join(missing, ", "))
}
