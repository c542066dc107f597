package intervention

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrMaterialsRequired means the filters name no material.
	ErrMaterialsRequired = eris.New("intervention: at least one material is required")
	// ErrSupplierConflict means a NEW_SUPPLIER intervention names both or
	// neither of a new producer and a new tier-1 supplier.
	ErrSupplierConflict = eris.New("intervention: exactly one of new producer or new t1 supplier is required")
	// ErrUnknownElement means a new material, admin region or supplier named
	// by the request does not exist.
	ErrUnknownElement = eris.New("intervention: unknown element")
	// ErrNotFound means the intervention does not exist.
	ErrNotFound = eris.New("intervention: not found")
)

// AtomicityError means persisting an intervention failed and every write of
// the attempt was rolled back.
type AtomicityError struct {
	InterventionID string
	Op             string
	Err            error
}

func (e *AtomicityError) Error() string {
	return fmt.Sprintf("intervention %s: %s rolled back: %v", e.InterventionID, e.Op, e.Err)
}

func (e *AtomicityError) Unwrap() error {
	return e.Err
}
