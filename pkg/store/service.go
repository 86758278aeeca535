package store

import (
	"context"
	"time"

	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/metrics"
	"github.com/Aaron-1990/line-routing/pkg/pubsub"
	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// Service owns every mutation of persisted routing state. All writes
// funnel through it: a candidate step set is validated first, and only
// a clean set reaches the repository's atomic replace. Rejections are
// data (a ValidationResult), not errors, and persist nothing.
type Service struct {
	repo   Repository
	bus    *pubsub.Bus
	logger logging.Logger
	reg    *metrics.Registry
}

// NewService wires a repository with the ambient collaborators.
// bus may be nil when no change notifications are wanted; logger and
// reg fall back to the no-op logger and the default registry.
func NewService(repo Repository, bus *pubsub.Bus, logger logging.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger.With(logging.Component("store")),
		reg:    reg,
	}
}

// FindByModel returns the model's committed routing, or nil when the
// model has none. Absence is a normal state, not an error. Reads never
// validate.
func (s *Service) FindByModel(ctx context.Context, modelID string) (*routing.ModelRouting, error) {
	if modelID == "" {
		return nil, ErrEmptyModelID
	}

	start := time.Now()
	steps, err := s.repo.Get(ctx, modelID)
	if err != nil {
		if IsNotFound(err) {
			s.reg.RecordStoreOperation("get", "miss", time.Since(start))
			return nil, nil
		}
		s.reg.RecordStoreOperation("get", "error", time.Since(start))
		return nil, err
	}
	s.reg.RecordStoreOperation("get", "success", time.Since(start))

	return &routing.ModelRouting{ModelID: modelID, Steps: steps}, nil
}

// SetRouting validates a candidate step set and, only if it is clean,
// atomically replaces the model's entire routing. An invalid set is
// reported through the returned ValidationResult with nothing
// persisted. Malformed input (duplicate area, dangling predecessor)
// fails construction and is returned as an error before validation.
// An empty step set is valid and clears the routing.
func (s *Service) SetRouting(ctx context.Context, modelID string, steps []routing.Step) (*routing.ValidationResult, error) {
	if modelID == "" {
		return nil, ErrEmptyModelID
	}

	start := time.Now()
	g, err := routing.NewGraph(steps)
	if err != nil {
		s.logger.Warn("rejected malformed routing input",
			logging.ModelID(modelID),
			logging.Error(err),
		)
		return nil, err
	}

	result := routing.Validate(g)
	s.reg.RecordValidation(result, g.Len(), time.Since(start))

	if !result.IsValid {
		s.reg.RecordRejectedWrite()
		s.logger.Warn("rejected routing update",
			logging.ModelID(modelID),
			logging.Bool("cycle", result.HasCycle),
			logging.Bool("orphans", result.HasOrphans),
		)
		return result, nil
	}

	repoStart := time.Now()
	if err := s.repo.Replace(ctx, modelID, g.Steps()); err != nil {
		s.reg.RecordStoreOperation("replace", "error", time.Since(repoStart))
		return nil, err
	}
	s.reg.RecordStoreOperation("replace", "success", time.Since(repoStart))

	s.logger.Info("routing replaced",
		logging.ModelID(modelID),
		logging.Areas(g.Len()),
		logging.Latency(time.Since(start)),
	)
	if s.bus != nil {
		evt := s.bus.PublishReplaced(modelID, g.Len())
		s.reg.RecordEventPublished(evt.Topic)
	}
	s.updateModelGauge(ctx)

	return result, nil
}

// SetPredecessors edits one area's predecessor set, creating the step
// if the area is new, then pushes the whole graph back through
// SetRouting. A locally sound edit can still introduce a global cycle,
// so a single-area edit is never committed without full re-validation.
func (s *Service) SetPredecessors(ctx context.Context, modelID, areaCode string, predecessors []string) (*routing.ValidationResult, error) {
	if modelID == "" {
		return nil, ErrEmptyModelID
	}

	steps, err := s.repo.Get(ctx, modelID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		steps = nil
	}

	preds := make([]string, len(predecessors))
	copy(preds, predecessors)

	replaced := false
	for i := range steps {
		if steps[i].AreaCode == areaCode {
			steps[i].Predecessors = preds
			replaced = true
			break
		}
	}
	if !replaced {
		steps = append(steps, routing.Step{AreaCode: areaCode, Predecessors: preds})
	}

	return s.SetRouting(ctx, modelID, steps)
}

// DeleteRouting removes the model's routing as one unit. Deleting a
// model that has none succeeds quietly.
func (s *Service) DeleteRouting(ctx context.Context, modelID string) error {
	if modelID == "" {
		return ErrEmptyModelID
	}

	start := time.Now()
	deleted, err := s.repo.Delete(ctx, modelID)
	if err != nil {
		s.reg.RecordStoreOperation("delete", "error", time.Since(start))
		return err
	}
	s.reg.RecordStoreOperation("delete", "success", time.Since(start))

	if deleted {
		s.logger.Info("routing deleted", logging.ModelID(modelID))
		if s.bus != nil {
			evt := s.bus.PublishDeleted(modelID)
			s.reg.RecordEventPublished(evt.Topic)
		}
		s.updateModelGauge(ctx)
	}
	return nil
}

// ValidateRouting re-checks the persisted routing on demand, without
// mutating anything. A model with no routing reports valid and empty.
func (s *Service) ValidateRouting(ctx context.Context, modelID string) (*routing.ValidationResult, error) {
	if modelID == "" {
		return nil, ErrEmptyModelID
	}

	steps, err := s.repo.Get(ctx, modelID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		steps = nil
	}

	start := time.Now()
	result, err := routing.ValidateSteps(steps)
	if err != nil {
		// Committed steps failed graph construction: the write path
		// was bypassed or the rows are corrupt.
		return nil, NewError("validate").Backend(s.repo.Name()).Model(modelID).Context("persisted steps no longer build").Cause(err).Err()
	}
	s.reg.RecordValidation(result, len(steps), time.Since(start))

	return result, nil
}

// TopologicalOrder returns an execution order over the model's
// routing. found is false when the model has no routing. An ordering
// failure on committed data means validation was bypassed at write
// time; it surfaces as an error, never as a validation result.
func (s *Service) TopologicalOrder(ctx context.Context, modelID string) ([]string, bool, error) {
	if modelID == "" {
		return nil, false, ErrEmptyModelID
	}

	steps, err := s.repo.Get(ctx, modelID)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	g, err := routing.NewGraph(steps)
	if err != nil {
		return nil, true, NewError("order").Backend(s.repo.Name()).Model(modelID).Context("persisted steps no longer build").Cause(err).Err()
	}

	start := time.Now()
	order, err := routing.TopologicalOrder(g)
	if err != nil {
		s.reg.RecordOrder("invariant_violation", time.Since(start))
		s.logger.Error("ordering failed on committed routing",
			logging.ModelID(modelID),
			logging.Error(err),
		)
		return nil, true, NewError("order").Backend(s.repo.Name()).Model(modelID).Cause(err).Err()
	}
	s.reg.RecordOrder("success", time.Since(start))

	return order, true, nil
}

// OrderBatches returns the execution order grouped into stages whose
// areas share no dependency and may run in parallel. found semantics
// match TopologicalOrder.
func (s *Service) OrderBatches(ctx context.Context, modelID string) ([][]string, bool, error) {
	if modelID == "" {
		return nil, false, ErrEmptyModelID
	}

	steps, err := s.repo.Get(ctx, modelID)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	g, err := routing.NewGraph(steps)
	if err != nil {
		return nil, true, NewError("order").Backend(s.repo.Name()).Model(modelID).Context("persisted steps no longer build").Cause(err).Err()
	}

	start := time.Now()
	batches, err := routing.OrderBatches(g)
	if err != nil {
		s.reg.RecordOrder("invariant_violation", time.Since(start))
		s.logger.Error("ordering failed on committed routing",
			logging.ModelID(modelID),
			logging.Error(err),
		)
		return nil, true, NewError("order").Backend(s.repo.Name()).Model(modelID).Cause(err).Err()
	}
	s.reg.RecordOrder("success", time.Since(start))

	return batches, true, nil
}

// HasRouting reports whether the model has a committed routing.
func (s *Service) HasRouting(ctx context.Context, modelID string) (bool, error) {
	if modelID == "" {
		return false, ErrEmptyModelID
	}
	return s.repo.Exists(ctx, modelID)
}

// ListModels returns every model with a committed routing, ascending.
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	return s.repo.ListModels(ctx)
}

// Backend names the repository backend in use.
func (s *Service) Backend() string {
	return s.repo.Name()
}

// Close releases the repository.
func (s *Service) Close() error {
	return s.repo.Close()
}

// updateModelGauge refreshes the stored-models gauge after a write.
// The write already committed, so a listing failure is only logged.
func (s *Service) updateModelGauge(ctx context.Context) {
	models, err := s.repo.ListModels(ctx)
	if err != nil {
		s.logger.Debug("failed to refresh model gauge", logging.Error(err))
		return
	}
	s.reg.StoreModelsTotal.Set(float64(len(models)))
}
