package intervention

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/impact-cli/internal/indicator"
	"github.com/sells-group/impact-cli/internal/location"
	"github.com/sells-group/impact-cli/internal/model"
)

// Service creates, rebuilds and toggles interventions.
type Service struct {
	store   Store
	builder *Builder
	log     *zap.Logger
}

// NewService creates a Service.
func NewService(store Store, resolver location.Resolver, calc indicator.Computer, concurrency int) *Service {
	return &Service{
		store:   store,
		builder: NewBuilder(store, resolver, calc, concurrency),
		log:     zap.L().With(zap.String("component", "intervention")),
	}
}

// Create builds req and commits it with its overlay. Nothing is written
// unless everything is.
func (s *Service) Create(ctx context.Context, req model.InterventionRequest) (*model.Intervention, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	iv, err := s.builder.Build(ctx, "", req)
	if err != nil {
		return nil, err
	}
	if err := s.store.CommitIntervention(ctx, iv, false); err != nil {
		return nil, &AtomicityError{InterventionID: iv.ID, Op: "create", Err: err}
	}

	s.logCommitted("intervention created", iv)
	return iv, nil
}

// Replace rebuilds intervention id from req, swapping its overlay in one
// transaction. The status and creation time are kept.
func (s *Service) Replace(ctx context.Context, id string, req model.InterventionRequest) (*model.Intervention, error) {
	existing, err := s.store.Intervention(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "intervention: load %s", id)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	iv, err := s.builder.Build(ctx, id, req)
	if err != nil {
		return nil, err
	}
	iv.Status = existing.Status
	iv.CreatedAt = existing.CreatedAt

	if err := s.store.CommitIntervention(ctx, iv, true); err != nil {
		return nil, &AtomicityError{InterventionID: id, Op: "replace", Err: err}
	}

	s.logCommitted("intervention replaced", iv)
	return iv, nil
}

// SetStatus activates or deactivates an intervention. Inactive interventions
// are left out of scenario tables.
func (s *Service) SetStatus(ctx context.Context, id string, status model.InterventionStatus) error {
	if status != model.InterventionActive && status != model.InterventionInactive {
		return eris.Errorf("intervention: unknown status %q", status)
	}
	if err := s.store.SetInterventionStatus(ctx, id, status); err != nil {
		return eris.Wrapf(err, "intervention: set status of %s", id)
	}
	s.log.Info("intervention status changed", zap.String("intervention_id", id), zap.String("status", string(status)))
	return nil
}

func (s *Service) logCommitted(msg string, iv *model.Intervention) {
	s.log.Info(msg,
		zap.String("intervention_id", iv.ID),
		zap.String("scenario_id", iv.ScenarioID),
		zap.String("type", string(iv.Type)),
		zap.Int("canceled_locations", len(iv.ReplacedSourcingLocations)),
		zap.Int("replacing_locations", len(iv.NewSourcingLocations)),
		zap.String("location_warning", iv.LocationWarning),
	)
}
