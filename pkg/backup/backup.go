package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/metrics"
	"github.com/Aaron-1990/line-routing/pkg/routing"
	"github.com/Aaron-1990/line-routing/pkg/store"
)

// Sink stores encoded snapshots under a name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Name() string
}

// Manager snapshots the routing service into one or more sinks and
// restores from them.
type Manager struct {
	svc    *store.Service
	logger logging.Logger
	reg    *metrics.Registry
	sinks  []Sink
}

// NewManager creates a backup manager over the given sinks.
func NewManager(svc *store.Service, logger logging.Logger, reg *metrics.Registry, sinks ...Sink) *Manager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &Manager{
		svc:    svc,
		logger: logger.With(logging.Component("backup")),
		reg:    reg,
		sinks:  sinks,
	}
}

// Snapshot captures every model's routing and writes the encoded
// snapshot to all sinks. As long as one sink accepted it the snapshot
// is considered taken; per-sink failures are logged and counted.
func (m *Manager) Snapshot(ctx context.Context) (string, error) {
	start := time.Now()

	models, err := m.svc.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list models: %w", err)
	}

	snap := &Snapshot{
		Version:   SnapshotVersion,
		CreatedAt: time.Now().UTC(),
		Routings:  make([]routing.ModelRouting, 0, len(models)),
	}
	for _, id := range models {
		mr, err := m.svc.FindByModel(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to read routing %s: %w", id, err)
		}
		if mr == nil {
			// Deleted between list and read; skip.
			continue
		}
		snap.Routings = append(snap.Routings, *mr)
	}

	data, err := Encode(snap)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("routing-%s.snap", snap.CreatedAt.Format("20060102-150405.000000000"))

	written := 0
	var lastErr error
	for _, sink := range m.sinks {
		if err := sink.Put(ctx, name, data); err != nil {
			m.reg.RecordSnapshot(sink.Name(), "error", 0, time.Since(start))
			m.logger.Error("snapshot write failed",
				logging.String("sink", sink.Name()),
				logging.Path(name),
				logging.Error(err),
			)
			lastErr = err
			continue
		}
		m.reg.RecordSnapshot(sink.Name(), "success", len(data), time.Since(start))
		m.logger.Info("snapshot written",
			logging.String("sink", sink.Name()),
			logging.Path(name),
			logging.Count(len(snap.Routings)),
			logging.Int("bytes", len(data)),
		)
		written++
	}

	if written == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("snapshot not written to any sink: %w", lastErr)
		}
		return "", fmt.Errorf("no snapshot sinks configured")
	}
	return name, nil
}

// RestoreResult reports what a restore applied and what it refused.
type RestoreResult struct {
	Restored int
	Skipped  []SkippedRouting
}

// SkippedRouting is one snapshot entry the restore did not apply.
type SkippedRouting struct {
	ModelID string
	Reason  string
}

// Restore loads the named snapshot from the first sink that has it and
// replays every routing through the normal replace path. Entries that
// no longer validate are skipped and reported, or abort the restore
// when abortOnInvalid is set. Models absent from the snapshot are left
// alone.
func (m *Manager) Restore(ctx context.Context, name string, abortOnInvalid bool) (*RestoreResult, error) {
	var data []byte
	var err error
	for _, sink := range m.sinks {
		data, err = sink.Get(ctx, name)
		if err == nil {
			break
		}
	}
	if data == nil {
		m.reg.RecordRestore("error", 0)
		return nil, fmt.Errorf("snapshot %s not found in any sink: %w", name, err)
	}

	snap, err := Decode(data)
	if err != nil {
		m.reg.RecordRestore("error", 0)
		return nil, err
	}

	result, err := m.RestoreSnapshot(ctx, snap, abortOnInvalid)
	if err != nil {
		m.reg.RecordRestore("error", result.Restored)
		return result, err
	}

	status := "success"
	if len(result.Skipped) > 0 {
		status = "partial"
	}
	m.reg.RecordRestore(status, result.Restored)
	return result, nil
}

// RestoreSnapshot replays a decoded snapshot through the service.
func (m *Manager) RestoreSnapshot(ctx context.Context, snap *Snapshot, abortOnInvalid bool) (*RestoreResult, error) {
	result := &RestoreResult{}

	for _, mr := range snap.Routings {
		vr, err := m.svc.SetRouting(ctx, mr.ModelID, mr.Steps)
		if err != nil {
			if abortOnInvalid {
				return result, fmt.Errorf("restore of %s failed: %w", mr.ModelID, err)
			}
			result.Skipped = append(result.Skipped, SkippedRouting{ModelID: mr.ModelID, Reason: err.Error()})
			continue
		}
		if !vr.IsValid {
			reason := describeInvalid(vr)
			if abortOnInvalid {
				return result, fmt.Errorf("restore of %s rejected: %s", mr.ModelID, reason)
			}
			m.logger.Warn("snapshot entry rejected",
				logging.ModelID(mr.ModelID),
				logging.String("reason", reason),
			)
			result.Skipped = append(result.Skipped, SkippedRouting{ModelID: mr.ModelID, Reason: reason})
			continue
		}
		result.Restored++
	}

	m.logger.Info("restore finished",
		logging.Count(result.Restored),
		logging.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func describeInvalid(vr *routing.ValidationResult) string {
	switch {
	case vr.HasCycle && vr.HasOrphans:
		return fmt.Sprintf("cycle %v and orphans %v", vr.CycleNodes, vr.OrphanNodes)
	case vr.HasCycle:
		return fmt.Sprintf("cycle %v", vr.CycleNodes)
	case vr.HasOrphans:
		return fmt.Sprintf("orphans %v", vr.OrphanNodes)
	default:
		return "rejected"
	}
}
