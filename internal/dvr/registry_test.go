package dvr

import (
	"errors"
	"testing"

	"hls-dvr/internal/platform/logger"
)

func newTestRegistry(t *testing.T) (*Registry, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	return NewRegistry(store, logger.Discard()), store
}

func TestRegistry_Start(t *testing.T) {
	reg, store := newTestRegistry(t)
	desc := JobDescriptor{Name: "cam1", InputURL: "https://e/s", SegmentSeconds: 6}

	if err := reg.Start(desc, NewStopHandle()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reg.IsRunning("cam1") {
		t.Error("cam1 should be running")
	}

	persisted, _ := store.Load()
	if len(persisted) != 1 || persisted[0] != desc {
		t.Errorf("snapshot should hold the descriptor, got %v", persisted)
	}
}

func TestRegistry_Start_duplicate_name(t *testing.T) {
	reg, _ := newTestRegistry(t)
	desc := JobDescriptor{Name: "cam1"}

	if err := reg.Start(desc, NewStopHandle()); err != nil {
		t.Fatal(err)
	}
	err := reg.Start(desc, NewStopHandle())
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRegistry_Stop_fires_handle_and_persists(t *testing.T) {
	reg, store := newTestRegistry(t)
	stop := NewStopHandle()
	if err := reg.Start(JobDescriptor{Name: "cam1"}, stop); err != nil {
		t.Fatal(err)
	}

	if !reg.Stop("cam1") {
		t.Error("Stop should report a removal")
	}
	select {
	case <-stop.Done():
	default:
		t.Error("stop handle should have fired")
	}
	if reg.IsRunning("cam1") {
		t.Error("cam1 should no longer be running")
	}
	persisted, _ := store.Load()
	if len(persisted) != 0 {
		t.Errorf("snapshot should be empty after Stop, got %v", persisted)
	}
}

func TestRegistry_Stop_unknown_name_is_noop(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if reg.Stop("missing") {
		t.Error("stopping an unregistered name should be a no-op")
	}
	// And again, to prove idempotence.
	if reg.Stop("missing") {
		t.Error("second stop should also be a no-op")
	}
}

func TestRegistry_Finish_tolerates_prior_stop(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if err := reg.Start(JobDescriptor{Name: "cam1"}, NewStopHandle()); err != nil {
		t.Fatal(err)
	}

	reg.Stop("cam1")
	reg.Finish("cam1") // record already gone; must not panic or re-persist
	if reg.IsRunning("cam1") {
		t.Error("cam1 should be gone")
	}
}

func TestRegistry_Finish_removes_and_persists(t *testing.T) {
	reg, store := newTestRegistry(t)
	if err := reg.Start(JobDescriptor{Name: "cam1"}, NewStopHandle()); err != nil {
		t.Fatal(err)
	}

	reg.Finish("cam1")
	persisted, _ := store.Load()
	if len(persisted) != 0 {
		t.Errorf("snapshot should be empty after Finish, got %v", persisted)
	}
}

func TestRegistry_Active_sorted(t *testing.T) {
	reg, _ := newTestRegistry(t)
	for _, name := range []string{"zebra", "alpha", "mid"} {
		if err := reg.Start(JobDescriptor{Name: name}, NewStopHandle()); err != nil {
			t.Fatal(err)
		}
	}

	active := reg.Active()
	if len(active) != 3 || active[0].Name != "alpha" || active[1].Name != "mid" || active[2].Name != "zebra" {
		t.Errorf("expected sorted descriptors, got %v", active)
	}
	if reg.ActiveCount() != 3 {
		t.Errorf("ActiveCount: got %d", reg.ActiveCount())
	}
}

// failingStore fails every Save to exercise the logged-and-continue
// persistence policy.
type failingStore struct{}

func (failingStore) Save([]JobDescriptor) error     { return errors.New("disk full") }
func (failingStore) Load() ([]JobDescriptor, error) { return nil, nil }

func TestRegistry_persist_failure_keeps_memory_state(t *testing.T) {
	reg := NewRegistry(failingStore{}, logger.Discard())

	if err := reg.Start(JobDescriptor{Name: "cam1"}, NewStopHandle()); err != nil {
		t.Fatalf("Start must succeed despite persist failure: %v", err)
	}
	if !reg.IsRunning("cam1") {
		t.Error("cam1 should be registered despite persist failure")
	}
	if !reg.Stop("cam1") {
		t.Error("Stop must succeed despite persist failure")
	}
}

func TestRegistry_LoadPersisted(t *testing.T) {
	store := NewInMemoryStore()
	want := []JobDescriptor{{Name: "cam1", InputURL: "u", SegmentSeconds: 6}}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry(store, logger.Discard())
	got, err := reg.LoadPersisted()
	if err != nil {
		t.Fatalf("LoadPersisted: %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("LoadPersisted: got %v want %v", got, want)
	}
}

func TestStopHandle_fire_is_idempotent(t *testing.T) {
	h := NewStopHandle()
	h.Fire()
	h.Fire() // second fire must not panic
	select {
	case <-h.Done():
	default:
		t.Error("Done should be closed after Fire")
	}
}

func TestStopHandle_fire_without_receiver(t *testing.T) {
	h := NewStopHandle()
	// Nothing ever reads Done; firing must not block.
	h.Fire()
}
