// Package store persists model routings and orchestrates the
// validate-then-commit write path. Repositories hold committed step
// sets; the Service is the only component that mutates them, and every
// write passes structural validation before it reaches a repository.
package store

import (
	"context"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// Repository is the persistence boundary for committed routings.
// Replace must be atomic per model: a concurrent Get never observes a
// mixture of old and new steps. Repositories do not validate; the
// Service only hands them step sets that already passed validation.
type Repository interface {
	// Get returns the persisted steps for a model in normalized order.
	// Returns an error wrapping ErrRoutingNotFound when the model has
	// no routing.
	Get(ctx context.Context, modelID string) ([]routing.Step, error)

	// Replace atomically swaps the model's entire step set for the
	// given one. An empty step set removes the routing.
	Replace(ctx context.Context, modelID string, steps []routing.Step) error

	// Delete removes the model's routing and reports whether anything
	// was removed. Deleting an absent routing is not an error.
	Delete(ctx context.Context, modelID string) (bool, error)

	// Exists reports whether the model has a persisted routing.
	Exists(ctx context.Context, modelID string) (bool, error)

	// ListModels returns every model ID with a routing, ascending.
	ListModels(ctx context.Context) ([]string, error)

	// Name identifies the backend in logs, errors and metrics.
	Name() string

	// Close releases the backend's resources.
	Close() error
}

// copySteps deep-copies a step list so callers cannot alias repository
// state through returned or retained slices.
func copySteps(steps []routing.Step) []routing.Step {
	out := make([]routing.Step, len(steps))
	for i, st := range steps {
		preds := make([]string, len(st.Predecessors))
		copy(preds, st.Predecessors)
		out[i] = routing.Step{AreaCode: st.AreaCode, Predecessors: preds}
	}
	return out
}
