package dvr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotStore is the persistence abstraction for the registry's
// active-job snapshot. The Registry rewrites the full snapshot on every
// membership change and loads it once at startup.
type SnapshotStore interface {
	// Save durably replaces the snapshot with the given descriptors.
	Save(descriptors []JobDescriptor) error

	// Load reads the snapshot. An absent snapshot is not an error and
	// returns an empty list; a present but unreadable or malformed
	// snapshot is an error.
	Load() ([]JobDescriptor, error)
}

// FileStore persists the snapshot as a JSON array at a fixed path,
// written to a temp file and renamed into place so readers never see a
// partial write.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save implements SnapshotStore.Save.
func (s *FileStore) Save(descriptors []JobDescriptor) error {
	if descriptors == nil {
		descriptors = []JobDescriptor{}
	}
	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load implements SnapshotStore.Load.
func (s *FileStore) Load() ([]JobDescriptor, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var descriptors []JobDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	return descriptors, nil
}

// InMemoryStore is an in-memory SnapshotStore for tests and for running
// without durable state.
type InMemoryStore struct {
	descriptors []JobDescriptor
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Save implements SnapshotStore.Save.
func (s *InMemoryStore) Save(descriptors []JobDescriptor) error {
	s.descriptors = append([]JobDescriptor(nil), descriptors...)
	return nil
}

// Load implements SnapshotStore.Load.
func (s *InMemoryStore) Load() ([]JobDescriptor, error) {
	return append([]JobDescriptor(nil), s.descriptors...), nil
}
