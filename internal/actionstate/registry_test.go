package actionstate

import (
	"sync"
	"testing"

	"github.com/flotilla-dev/flotilla/internal/types"
)

func TestBusyAbsentID(t *testing.T) {
	r := NewRegistry[types.DeploymentActionState]()
	if r.Busy("missing") {
		t.Error("absent id should not be busy")
	}
}

func TestBusyReflectsAnyFlag(t *testing.T) {
	r := NewRegistry[types.ServerActionState]()
	r.Update("s1", func(e *types.ServerActionState) { e.PruningImages = true })
	if !r.Busy("s1") {
		t.Error("expected busy after setting a flag")
	}
	r.Update("s1", func(e *types.ServerActionState) { e.PruningImages = false })
	if r.Busy("s1") {
		t.Error("expected not busy after clearing the flag")
	}
}

func TestGetReturnsDefensiveCopy(t *testing.T) {
	r := NewRegistry[types.DeploymentActionState]()
	r.Update("d1", func(e *types.DeploymentActionState) { e.Deploying = true })

	snap := r.Get("d1")
	snap.Deploying = false

	if !r.Busy("d1") {
		t.Error("mutating a snapshot must not affect the registry")
	}
}

func TestGetAbsentIsZero(t *testing.T) {
	r := NewRegistry[types.DeploymentActionState]()
	if snap := r.Get("nope"); snap.Busy() {
		t.Errorf("zero entry should not be busy: %+v", snap)
	}
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	r := NewRegistry[types.DeploymentActionState]()

	const workers = 32
	const iterations = 200
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				r.Update("d1", func(e *types.DeploymentActionState) { e.Deploying = true })
				r.Busy("d1")
				r.Update("d1", func(e *types.DeploymentActionState) { e.Deploying = false })
			}
		}()
	}
	wg.Wait()

	if r.Busy("d1") {
		t.Error("all flags should be clear after workers finish")
	}
}

func TestIndependentIDs(t *testing.T) {
	r := NewRegistry[types.DeploymentActionState]()
	r.Update("d1", func(e *types.DeploymentActionState) { e.Stopping = true })
	if r.Busy("d2") {
		t.Error("busy flag on d1 must not leak to d2")
	}
}
