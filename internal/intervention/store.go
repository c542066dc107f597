package intervention

import (
	"context"

	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/internal/tree"
)

// Store is the persistence the builder and service need.
type Store interface {
	tree.DescendantSource

	// ActualLocations returns the sourcing locations outside any overlay
	// that match f, with their records and indicator records. Empty
	// optional filters match everything.
	ActualLocations(ctx context.Context, f model.Filters) ([]model.SourcingLocation, error)

	Materials(ctx context.Context, ids []string) ([]model.Material, error)
	AdminRegions(ctx context.Context, ids []string) ([]model.AdminRegion, error)
	BusinessUnits(ctx context.Context, ids []string) ([]model.BusinessUnit, error)
	Suppliers(ctx context.Context, ids []string) ([]model.Supplier, error)
	Indicators(ctx context.Context, ids []string) ([]model.Indicator, error)

	// Intervention returns the intervention without its overlay, or
	// ErrNotFound.
	Intervention(ctx context.Context, id string) (*model.Intervention, error)

	// CommitIntervention writes iv and its overlay in one transaction. With
	// replace set, the stored intervention of the same id and its overlay
	// are removed in that same transaction first.
	CommitIntervention(ctx context.Context, iv *model.Intervention, replace bool) error

	SetInterventionStatus(ctx context.Context, id string, status model.InterventionStatus) error
}
