package method

import (
	"context"

	"surveyagg/internal/faults"
	"surveyagg/internal/invoke"
	payload "surveyagg/internal/parser/json"
	"surveyagg/pkg/records"
)

// Injector adapts an Invoker into the dataset.RegionInjector collaborator
// used by the brick consolidation. Name defaults to the add-regionless
// method.
type Injector struct {
	Invoker invoke.Invoker
	Name    string
	RunID   string
}

// InjectRegionless invokes the region method and returns its table.
func (i Injector) InjectRegionless(ctx context.Context, t records.Table, regionColumn string, regionlessCode int) (records.Table, error) {
	name := i.Name
	if name == "" {
		name = NameAddRegionless
	}
	data, err := payload.Encode(t)
	if err != nil {
		return nil, faults.Wrap(faults.General, err, "encode batch for %s", name)
	}
	res, err := i.Invoker.Invoke(ctx, name, RegionPayload{
		Data:           data,
		RegionColumn:   regionColumn,
		RegionlessCode: regionlessCode,
		RunID:          i.RunID,
	})
	if err != nil {
		return nil, faults.Wrap(faults.ExternalCall, err, "invoke %s", name)
	}
	if !res.Success {
		return nil, faults.New(faults.ExternalCall, "%s reported failure: %s", name, res.Error)
	}
	out, err := payload.DecodeBytes(res.Data)
	if err != nil {
		return nil, faults.Wrap(faults.ExternalCall, err, "decode %s response", name)
	}
	return out, nil
}
