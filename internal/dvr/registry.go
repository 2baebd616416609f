package dvr

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// StopHandle is a fire-once cancellation signal for a supervisor task.
// Fire may be called any number of times, from any goroutine, including
// after the supervisor has already exited; only the first call closes
// the channel.
type StopHandle struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopHandle returns an unfired StopHandle.
func NewStopHandle() *StopHandle {
	return &StopHandle{ch: make(chan struct{})}
}

// Fire requests supervisor shutdown. Safe to call more than once.
func (h *StopHandle) Fire() {
	h.once.Do(func() { close(h.ch) })
}

// Done returns the channel that is closed when Fire is called.
func (h *StopHandle) Done() <-chan struct{} {
	return h.ch
}

// jobRecord pairs an active job's descriptor with its stop handle.
type jobRecord struct {
	desc JobDescriptor
	stop *StopHandle
}

// Registry is the concurrency-safe map of active recording jobs. All
// membership changes go through the same mutex, and every change is
// followed by a full rewrite of the persisted snapshot while the lock
// is still held, so the snapshot on disk always reflects the last
// committed registry state.
//
// A snapshot write failure at runtime is logged and does not roll back
// the in-memory change: the registry stays authoritative until the next
// successful write.
type Registry struct {
	mu    sync.Mutex
	jobs  map[string]*jobRecord
	store SnapshotStore
	log   *slog.Logger
}

// NewRegistry returns an empty registry persisting through store.
func NewRegistry(store SnapshotStore, log *slog.Logger) *Registry {
	return &Registry{
		jobs:  make(map[string]*jobRecord),
		store: store,
		log:   log,
	}
}

// Start registers a job under its descriptor's name. It fails with
// ErrAlreadyRunning if the name is already registered.
func (r *Registry) Start(desc JobDescriptor, stop *StopHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, desc.Name)
	}
	r.jobs[desc.Name] = &jobRecord{desc: desc, stop: stop}
	r.persistLocked()
	return nil
}

// Stop removes the named job if present and fires its stop handle.
// Stopping a name with no record is a no-op, not an error; the reported
// bool says whether a job was actually stopped.
func (r *Registry) Stop(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.jobs[name]
	if !exists {
		return false
	}
	delete(r.jobs, name)
	rec.stop.Fire()
	r.persistLocked()
	return true
}

// Finish removes the named job's record when its supervisor loop exits.
// The record may already have been removed by Stop; that is fine.
func (r *Registry) Finish(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[name]; !exists {
		return
	}
	delete(r.jobs, name)
	r.persistLocked()
}

// IsRunning reports whether the named job is registered.
func (r *Registry) IsRunning(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.jobs[name]
	return exists
}

// Active returns the descriptors of all registered jobs, sorted by name.
func (r *Registry) Active() []JobDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked()
}

// ActiveCount returns the number of registered jobs. Used for metrics.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// LoadPersisted reads the snapshot written by a previous run. An absent
// snapshot yields an empty list; a malformed one is an error and should
// abort startup.
func (r *Registry) LoadPersisted() ([]JobDescriptor, error) {
	return r.store.Load()
}

// activeLocked builds a sorted snapshot. Caller must hold r.mu.
func (r *Registry) activeLocked() []JobDescriptor {
	descriptors := make([]JobDescriptor, 0, len(r.jobs))
	for _, rec := range r.jobs {
		descriptors = append(descriptors, rec.desc)
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return descriptors
}

// persistLocked rewrites the full snapshot. Caller must hold r.mu.
func (r *Registry) persistLocked() {
	if err := r.store.Save(r.activeLocked()); err != nil {
		r.log.Error("persisting registry snapshot failed",
			slog.Int("active_jobs", len(r.jobs)),
			slog.String("error", err.Error()))
	}
}
