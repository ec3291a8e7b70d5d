package membership

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"klein/internal/ring"
	"klein/internal/state"
)

// fakeProvisioner records calls and returns a canned status.
type fakeProvisioner struct {
	mu      sync.Mutex
	started []string
	stopped []string
	status  int
}

func (f *fakeProvisioner) Start(ctx context.Context, name string, port int) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, name)
	return Result{Name: name, Status: f.status, Stdout: "container-id"}
}

func (f *fakeProvisioner) Stop(ctx context.Context, name string) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, name)
	return Result{Name: name, Status: f.status}
}

func newTestManager(prov Provisioner, strict bool) (*Manager, *ring.Pool) {
	pool := ring.NewPool()
	return NewManager(pool, prov, state.NewPortAllocator(9000), state.NewSource(1), "localhost", strict, zap.NewNop()), pool
}

func TestManager_AddAdmitsAndPlaces(t *testing.T) {
	prov := &fakeProvisioner{}
	m, pool := newTestManager(prov, false)

	b, res := m.Add(context.Background(), "n1")
	if res.Status != StatusOK {
		t.Fatalf("unexpected provisioning status %d", res.Status)
	}
	if b.Port != 9000 {
		t.Errorf("expected first allocated port 9000, got %d", b.Port)
	}
	if pool.Len() != 1 {
		t.Fatalf("expected 1 backend in pool, got %d", pool.Len())
	}

	got, ok := pool.Lookup(5)
	if !ok || got.Name != "n1" {
		t.Errorf("admitted backend not reachable via lookup")
	}
	if len(prov.started) != 1 || prov.started[0] != "n1" {
		t.Errorf("provisioner start not recorded: %v", prov.started)
	}
}

func TestManager_PortsNeverReused(t *testing.T) {
	m, _ := newTestManager(&fakeProvisioner{}, false)

	first, _ := m.Add(context.Background(), "n1")
	m.Remove(context.Background(), "n1")
	second, _ := m.Add(context.Background(), "n1")

	if second.Port <= first.Port {
		t.Errorf("restarted backend reused port %d (first was %d)", second.Port, first.Port)
	}
}

func TestManager_AddCommitsDespiteProvisioningFailure(t *testing.T) {
	prov := &fakeProvisioner{status: 125}
	m, pool := newTestManager(prov, false)

	_, res := m.Add(context.Background(), "n1")
	if res.Status != 125 {
		t.Errorf("expected provisioning status surfaced, got %d", res.Status)
	}
	if pool.Len() != 1 {
		t.Error("membership change should commit regardless of provisioning outcome")
	}
}

func TestManager_StrictRollsBackOnFailure(t *testing.T) {
	prov := &fakeProvisioner{status: 125}
	m, pool := newTestManager(prov, true)

	_, res := m.Add(context.Background(), "n1")
	if res.Status != 125 {
		t.Errorf("expected provisioning status surfaced, got %d", res.Status)
	}
	if pool.Len() != 0 {
		t.Error("strict manager should not admit a backend whose start failed")
	}
}

func TestManager_RemoveUnknown(t *testing.T) {
	prov := &fakeProvisioner{}
	m, _ := newTestManager(prov, false)

	res := m.Remove(context.Background(), "ghost")
	if res.Status != StatusNotFound {
		t.Errorf("expected StatusNotFound, got %d", res.Status)
	}
	if len(prov.stopped) != 0 {
		t.Error("provisioner should not be consulted for an unknown name")
	}
}

func TestManager_RemoveStopsAndUnlists(t *testing.T) {
	prov := &fakeProvisioner{}
	m, pool := newTestManager(prov, false)

	m.Add(context.Background(), "n1")
	m.Add(context.Background(), "n2")

	res := m.Remove(context.Background(), "n1")
	if res.Status != StatusOK {
		t.Errorf("unexpected remove status %d", res.Status)
	}
	if len(prov.stopped) != 1 || prov.stopped[0] != "n1" {
		t.Errorf("provisioner stop not recorded: %v", prov.stopped)
	}
	for _, b := range pool.Backends() {
		if b.Name == "n1" {
			t.Error("removed backend still listed")
		}
	}
}
