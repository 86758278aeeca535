package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// MemoryRepository keeps routings in process memory. It backs tests and
// single-node deployments where durability is not required.
type MemoryRepository struct {
	routings map[string][]routing.Step
	mu       sync.RWMutex
	closed   bool
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		routings: make(map[string][]routing.Step),
	}
}

// Get returns a deep copy of the model's steps.
func (m *MemoryRepository) Get(ctx context.Context, modelID string) ([]routing.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, NewError("get").Backend(m.Name()).Model(modelID).Cause(ErrStoreClosed).Err()
	}

	steps, ok := m.routings[modelID]
	if !ok {
		return nil, RoutingNotFoundError(m.Name(), modelID)
	}
	return copySteps(steps), nil
}

// Replace swaps the model's step set under the write lock, so readers
// see either the old set or the new one, never a mixture.
func (m *MemoryRepository) Replace(ctx context.Context, modelID string, steps []routing.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewError("replace").Backend(m.Name()).Model(modelID).Cause(ErrStoreClosed).Err()
	}

	if len(steps) == 0 {
		delete(m.routings, modelID)
		return nil
	}
	m.routings[modelID] = copySteps(steps)
	return nil
}

// Delete removes the model's routing and reports whether it existed.
func (m *MemoryRepository) Delete(ctx context.Context, modelID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, NewError("delete").Backend(m.Name()).Model(modelID).Cause(ErrStoreClosed).Err()
	}

	_, ok := m.routings[modelID]
	delete(m.routings, modelID)
	return ok, nil
}

// Exists reports whether the model has a routing.
func (m *MemoryRepository) Exists(ctx context.Context, modelID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, NewError("exists").Backend(m.Name()).Model(modelID).Cause(ErrStoreClosed).Err()
	}

	_, ok := m.routings[modelID]
	return ok, nil
}

// ListModels returns all model IDs with routing, ascending.
func (m *MemoryRepository) ListModels(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, NewError("list").Backend(m.Name()).Cause(ErrStoreClosed).Err()
	}

	models := make([]string, 0, len(m.routings))
	for id := range m.routings {
		models = append(models, id)
	}
	sort.Strings(models)
	return models, nil
}

// Name identifies the backend.
func (m *MemoryRepository) Name() string {
	return "memory"
}

// Close drops all state. Subsequent operations fail with ErrStoreClosed.
func (m *MemoryRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.routings = nil
	return nil
}
