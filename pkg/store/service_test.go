package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Aaron-1990/line-routing/pkg/metrics"
	"github.com/Aaron-1990/line-routing/pkg/pubsub"
	"github.com/Aaron-1990/line-routing/pkg/routing"
)

// newTestService builds a Service over a fresh memory repository with
// its own bus and metrics registry.
func newTestService(t *testing.T) (*Service, *pubsub.Bus) {
	t.Helper()

	repo := NewMemoryRepository()
	bus := pubsub.NewBus()
	svc := NewService(repo, bus, nil, metrics.NewRegistry())

	t.Cleanup(func() {
		bus.Shutdown()
		svc.Close()
	})
	return svc, bus
}

// mustSetRouting commits a step set and fails the test on rejection.
func mustSetRouting(t *testing.T, svc *Service, modelID string, steps []routing.Step) {
	t.Helper()

	result, err := svc.SetRouting(context.Background(), modelID, steps)
	if err != nil {
		t.Fatalf("SetRouting(%s) failed: %v", modelID, err)
	}
	if !result.IsValid {
		t.Fatalf("SetRouting(%s) rejected: %+v", modelID, result)
	}
}

// TestService_SetRoutingAndFindByModel verifies the accepted set reads
// back equal as a set of (area, predecessors) pairs.
func TestService_SetRoutingAndFindByModel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected routing, got nil")
	}
	if got.ModelID != "FX-2024" {
		t.Errorf("expected model FX-2024, got %q", got.ModelID)
	}
	if !reflect.DeepEqual(stepsByArea(got.Steps), stepsByArea(diamondSteps())) {
		t.Errorf("round trip mismatch: %v", stepsByArea(got.Steps))
	}
}

// TestService_FindByModelAbsent verifies absence is nil, not an error.
func TestService_FindByModelAbsent(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.FindByModel(context.Background(), "NEVER-WRITTEN")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent model, got %+v", got)
	}
}

// TestService_SetRoutingRejectsCycle verifies a cyclic set is reported
// through the result, not an error, and persists nothing.
func TestService_SetRoutingRejectsCycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.SetRouting(ctx, "FX-2024", []routing.Step{
		{AreaCode: "ICT-01", Predecessors: []string{"SMT-01"}},
		{AreaCode: "SMT-01", Predecessors: []string{"ICT-01"}},
	})
	if err != nil {
		t.Fatalf("SetRouting returned error: %v", err)
	}
	if result.IsValid || !result.HasCycle {
		t.Errorf("expected cycle rejection, got %+v", result)
	}

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if got != nil {
		t.Errorf("rejected write must persist nothing, found %+v", got)
	}
}

// TestService_SetRoutingRejectsOrphan verifies orphan rejection with
// the offending area named.
func TestService_SetRoutingRejectsOrphan(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.SetRouting(context.Background(), "FX-2024", []routing.Step{
		{AreaCode: "SMT-01", Predecessors: []string{}},
		{AreaCode: "ICT-01", Predecessors: []string{"SMT-01"}},
		{AreaCode: "COAT-01", Predecessors: []string{}},
	})
	if err != nil {
		t.Fatalf("SetRouting returned error: %v", err)
	}
	if result.IsValid || !result.HasOrphans {
		t.Fatalf("expected orphan rejection, got %+v", result)
	}
	if len(result.OrphanNodes) != 1 || result.OrphanNodes[0] != "COAT-01" {
		t.Errorf("expected orphan [COAT-01], got %v", result.OrphanNodes)
	}
}

// TestService_RejectionPreservesPreviousState verifies atomicity: a
// rejected update leaves exactly the prior routing in place.
func TestService_RejectionPreservesPreviousState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	result, err := svc.SetRouting(ctx, "FX-2024", []routing.Step{
		{AreaCode: "AOI-01", Predecessors: []string{"PACK-01"}},
		{AreaCode: "PACK-01", Predecessors: []string{"AOI-01"}},
	})
	if err != nil {
		t.Fatalf("SetRouting returned error: %v", err)
	}
	if result.IsValid {
		t.Fatal("expected rejection")
	}

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if got == nil {
		t.Fatal("previous routing vanished after rejected update")
	}
	if !reflect.DeepEqual(stepsByArea(got.Steps), stepsByArea(diamondSteps())) {
		t.Errorf("previous routing changed after rejected update: %v", stepsByArea(got.Steps))
	}
}

// TestService_SetRoutingInputError verifies malformed input fails with
// a structured error before validation and persists nothing.
func TestService_SetRoutingInputError(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetRouting(ctx, "FX-2024", []routing.Step{
		{AreaCode: "SMT-01", Predecessors: []string{}},
		{AreaCode: "SMT-01", Predecessors: []string{}},
	})
	if !routing.IsInvalidInput(err) {
		t.Errorf("expected invalid input error, got %v", err)
	}

	_, err = svc.SetRouting(ctx, "FX-2024", []routing.Step{
		{AreaCode: "ICT-01", Predecessors: []string{"GHOST-99"}},
	})
	if !routing.IsInvalidInput(err) {
		t.Errorf("expected invalid input error for dangling predecessor, got %v", err)
	}

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if got != nil {
		t.Errorf("malformed input must persist nothing, found %+v", got)
	}
}

// TestService_SetRoutingEmptyClears verifies an empty set is accepted
// and removes the routing.
func TestService_SetRoutingEmptyClears(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	result, err := svc.SetRouting(ctx, "FX-2024", nil)
	if err != nil {
		t.Fatalf("clearing SetRouting failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("empty set should be valid, got %+v", result)
	}

	has, err := svc.HasRouting(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("HasRouting failed: %v", err)
	}
	if has {
		t.Error("routing should be gone after clearing")
	}
}

// TestService_SetPredecessors_EditExisting verifies a single-area edit
// replaces only that area's predecessor set.
func TestService_SetPredecessors_EditExisting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	result, err := svc.SetPredecessors(ctx, "FX-2024", "PACK-01", []string{"AOI-01"})
	if err != nil {
		t.Fatalf("SetPredecessors failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected accepted edit, got %+v", result)
	}

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	byArea := stepsByArea(got.Steps)
	if !reflect.DeepEqual(byArea["PACK-01"], []string{"AOI-01"}) {
		t.Errorf("expected PACK-01 predecessors [AOI-01], got %v", byArea["PACK-01"])
	}
	if !reflect.DeepEqual(byArea["ICT-01"], []string{"SMT-01"}) {
		t.Errorf("other areas must be untouched, ICT-01 has %v", byArea["ICT-01"])
	}
}

// TestService_SetPredecessors_CreatesStep verifies editing an unknown
// area adds it to the routing.
func TestService_SetPredecessors_CreatesStep(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "FX-2024", []routing.Step{
		{AreaCode: "ICT-01", Predecessors: []string{"SMT-01"}},
		{AreaCode: "SMT-01", Predecessors: []string{}},
	})

	result, err := svc.SetPredecessors(ctx, "FX-2024", "FCT-01", []string{"ICT-01"})
	if err != nil {
		t.Fatalf("SetPredecessors failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("expected accepted edit, got %+v", result)
	}

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	byArea := stepsByArea(got.Steps)
	if !reflect.DeepEqual(byArea["FCT-01"], []string{"ICT-01"}) {
		t.Errorf("expected new step FCT-01:[ICT-01], got %v", byArea["FCT-01"])
	}
}

// TestService_SetPredecessors_RejectsGlobalCycle verifies a locally
// plausible edit is rejected when it closes a cycle through the rest
// of the graph, and the stored routing is unchanged.
func TestService_SetPredecessors_RejectsGlobalCycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chain := []routing.Step{
		{AreaCode: "FCT-01", Predecessors: []string{"ICT-01"}},
		{AreaCode: "ICT-01", Predecessors: []string{"SMT-01"}},
		{AreaCode: "SMT-01", Predecessors: []string{}},
	}
	mustSetRouting(t, svc, "FX-2024", chain)

	result, err := svc.SetPredecessors(ctx, "FX-2024", "SMT-01", []string{"FCT-01"})
	if err != nil {
		t.Fatalf("SetPredecessors failed: %v", err)
	}
	if result.IsValid || !result.HasCycle {
		t.Fatalf("expected cycle rejection, got %+v", result)
	}

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if !reflect.DeepEqual(stepsByArea(got.Steps), stepsByArea(chain)) {
		t.Errorf("routing changed by rejected edit: %v", stepsByArea(got.Steps))
	}
}

// TestService_SetPredecessors_NewModel verifies editing a model with
// no routing creates a single-area routing.
func TestService_SetPredecessors_NewModel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.SetPredecessors(ctx, "NEW-MODEL", "SMT-01", nil)
	if err != nil {
		t.Fatalf("SetPredecessors failed: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("single-area routing must be valid, got %+v", result)
	}

	has, err := svc.HasRouting(ctx, "NEW-MODEL")
	if err != nil {
		t.Fatalf("HasRouting failed: %v", err)
	}
	if !has {
		t.Error("expected routing to exist")
	}
}

// TestService_DeleteRouting verifies deletion removes the whole config
// and deleting an absent model succeeds.
func TestService_DeleteRouting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	if err := svc.DeleteRouting(ctx, "FX-2024"); err != nil {
		t.Fatalf("DeleteRouting failed: %v", err)
	}
	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected routing gone, got %+v", got)
	}

	if err := svc.DeleteRouting(ctx, "FX-2024"); err != nil {
		t.Errorf("deleting absent routing should succeed, got %v", err)
	}
}

// TestService_ValidateRouting verifies on-demand validation of
// persisted and absent routings.
func TestService_ValidateRouting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.ValidateRouting(ctx, "NEVER-WRITTEN")
	if err != nil {
		t.Fatalf("ValidateRouting failed: %v", err)
	}
	if !result.IsValid || result.HasCycle || result.HasOrphans {
		t.Errorf("absent routing must validate as empty and valid, got %+v", result)
	}

	mustSetRouting(t, svc, "FX-2024", diamondSteps())
	result, err = svc.ValidateRouting(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("ValidateRouting failed: %v", err)
	}
	if !result.IsValid {
		t.Errorf("committed routing must validate, got %+v", result)
	}
}

// TestService_TopologicalOrder verifies ordering over committed state
// and the absent case.
//
//	    SMT-01
//	   /      \
//	AOI-01   ICT-01
//	   \      /
//	    PACK-01
func TestService_TopologicalOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, found, err := svc.TopologicalOrder(ctx, "NEVER-WRITTEN")
	if err != nil {
		t.Fatalf("TopologicalOrder failed: %v", err)
	}
	if found {
		t.Error("expected found=false for absent model")
	}

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	order, found, err := svc.TopologicalOrder(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("TopologicalOrder failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}

	want := []string{"SMT-01", "AOI-01", "ICT-01", "PACK-01"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

// TestService_OrderBatches verifies the parallel-stage grouping.
func TestService_OrderBatches(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	batches, found, err := svc.OrderBatches(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("OrderBatches failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}

	want := [][]string{{"SMT-01"}, {"AOI-01", "ICT-01"}, {"PACK-01"}}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("expected batches %v, got %v", want, batches)
	}
}

// TestService_EmptyModelID verifies every operation guards the empty id.
func TestService_EmptyModelID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.FindByModel(ctx, ""); !errors.Is(err, ErrEmptyModelID) {
		t.Errorf("FindByModel: expected ErrEmptyModelID, got %v", err)
	}
	if _, err := svc.SetRouting(ctx, "", nil); !errors.Is(err, ErrEmptyModelID) {
		t.Errorf("SetRouting: expected ErrEmptyModelID, got %v", err)
	}
	if _, err := svc.SetPredecessors(ctx, "", "SMT-01", nil); !errors.Is(err, ErrEmptyModelID) {
		t.Errorf("SetPredecessors: expected ErrEmptyModelID, got %v", err)
	}
	if err := svc.DeleteRouting(ctx, ""); !errors.Is(err, ErrEmptyModelID) {
		t.Errorf("DeleteRouting: expected ErrEmptyModelID, got %v", err)
	}
	if _, err := svc.ValidateRouting(ctx, ""); !errors.Is(err, ErrEmptyModelID) {
		t.Errorf("ValidateRouting: expected ErrEmptyModelID, got %v", err)
	}
	if _, _, err := svc.TopologicalOrder(ctx, ""); !errors.Is(err, ErrEmptyModelID) {
		t.Errorf("TopologicalOrder: expected ErrEmptyModelID, got %v", err)
	}
	if _, err := svc.HasRouting(ctx, ""); !errors.Is(err, ErrEmptyModelID) {
		t.Errorf("HasRouting: expected ErrEmptyModelID, got %v", err)
	}
}

// TestService_PublishesEvents verifies committed writes emit change
// events and rejected writes do not.
func TestService_PublishesEvents(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	replaced, err := bus.Subscribe(ctx, pubsub.TopicRoutingReplaced)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	deleted, err := bus.Subscribe(ctx, pubsub.TopicRoutingDeleted)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	select {
	case evt := <-replaced.Channel():
		if evt.ModelID != "FX-2024" || evt.Areas != 4 {
			t.Errorf("unexpected replace event %+v", evt)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("no replace event published")
	}

	// A rejected write publishes nothing.
	if _, err := svc.SetRouting(ctx, "FX-2024", []routing.Step{
		{AreaCode: "A", Predecessors: []string{"B"}},
		{AreaCode: "B", Predecessors: []string{"A"}},
	}); err != nil {
		t.Fatalf("SetRouting failed: %v", err)
	}
	select {
	case evt := <-replaced.Channel():
		t.Errorf("rejected write published event %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}

	if err := svc.DeleteRouting(ctx, "FX-2024"); err != nil {
		t.Fatalf("DeleteRouting failed: %v", err)
	}
	select {
	case evt := <-deleted.Channel():
		if evt.ModelID != "FX-2024" {
			t.Errorf("unexpected delete event %+v", evt)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("no delete event published")
	}
}

// TestService_ListModelsAndBackend verifies the admin listing and
// backend name passthrough.
func TestService_ListModelsAndBackend(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustSetRouting(t, svc, "MX-500", diamondSteps())
	mustSetRouting(t, svc, "AX-100", diamondSteps())

	models, err := svc.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	want := []string{"AX-100", "MX-500"}
	if !reflect.DeepEqual(models, want) {
		t.Errorf("expected %v, got %v", want, models)
	}

	if svc.Backend() != "memory" {
		t.Errorf("expected backend memory, got %q", svc.Backend())
	}
}

// TestService_SQLiteBacked runs the core write path against the
// durable backend to confirm the transaction wiring.
func TestService_SQLiteBacked(t *testing.T) {
	repo, err := NewSQLiteRepository(t.TempDir() + "/routing.db")
	if err != nil {
		t.Fatalf("failed to open sqlite repository: %v", err)
	}
	svc := NewService(repo, nil, nil, metrics.NewRegistry())
	defer svc.Close()

	ctx := context.Background()
	mustSetRouting(t, svc, "FX-2024", diamondSteps())

	order, found, err := svc.TopologicalOrder(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("TopologicalOrder failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	want := []string{"SMT-01", "AOI-01", "ICT-01", "PACK-01"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}

	result, err := svc.SetRouting(ctx, "FX-2024", []routing.Step{
		{AreaCode: "A", Predecessors: []string{"B"}},
		{AreaCode: "B", Predecessors: []string{"A"}},
	})
	if err != nil {
		t.Fatalf("SetRouting failed: %v", err)
	}
	if result.IsValid {
		t.Fatal("expected rejection")
	}

	got, err := svc.FindByModel(ctx, "FX-2024")
	if err != nil {
		t.Fatalf("FindByModel failed: %v", err)
	}
	if got == nil || !reflect.DeepEqual(stepsByArea(got.Steps), stepsByArea(diamondSteps())) {
		t.Error("previous routing not intact after rejected write on sqlite")
	}
}
