package spatial

import "fmt"

// MissingSpatialDataError means a material has no physical layer mapping. It
// is a reference data gap, not a zero impact.
type MissingSpatialDataError struct {
	MaterialID string
	LayerType  LayerType
}

func (e *MissingSpatialDataError) Error() string {
	return fmt.Sprintf("spatial: material %s has no %s layer", e.MaterialID, e.LayerType)
}

// UnavailableError means the aggregation backend could not serve the call.
// Callers decide whether to retry.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("spatial gateway unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
