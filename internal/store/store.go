// Package store persists the sourcing data, reference trees and scenario
// interventions in Postgres.
package store

import (
	"context"

	"github.com/sells-group/impact-cli/internal/impact"
	"github.com/sells-group/impact-cli/internal/indicator"
	"github.com/sells-group/impact-cli/internal/intervention"
)

// Store is everything the calculator, the table service and the
// intervention service need from persistence.
type Store interface {
	indicator.Source
	impact.Source
	intervention.Store

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

var _ Store = (*PostgresStore)(nil)
