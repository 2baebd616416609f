package dvr

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hls-dvr/internal/platform/metrics"
)

// archiveIndexName is the playlist filename inside each archived
// recording's directory.
const archiveIndexName = "index.m3u8"

// Service applies the DVR control operations on top of the Registry and
// Supervisor: start/resume/stop recordings, list pending and archived
// recordings, and finalize a stopped recording into a VOD archive.
type Service struct {
	registry    *Registry
	supervisor  *Supervisor
	log         *slog.Logger
	metrics     *metrics.Metrics
	pendingDir  string
	finishedDir string
}

// NewService returns a Service over the given collaborators. Metrics
// may be nil to disable metric recording (e.g. in tests).
func NewService(registry *Registry, supervisor *Supervisor, log *slog.Logger, m *metrics.Metrics, pendingDir, finishedDir string) *Service {
	return &Service{
		registry:    registry,
		supervisor:  supervisor,
		log:         log,
		metrics:     m,
		pendingDir:  pendingDir,
		finishedDir: finishedDir,
	}
}

// Start begins a new recording. A fresh start is rejected with
// ErrAlreadyExists when on-disk state for the name is already present;
// req.Resume bypasses that check so an operator can re-attach to an
// interrupted recording.
func (s *Service) Start(req StartRequest) error {
	desc := JobDescriptor{Name: req.Name, InputURL: req.InputURL, SegmentSeconds: req.HLSTime}
	return s.start(desc, req.Resume)
}

// Resume restarts supervision for a descriptor loaded from the
// persisted snapshot. Resumed jobs are expected to have on-disk state,
// so the collision check is skipped.
func (s *Service) Resume(desc JobDescriptor) error {
	return s.start(desc, true)
}

func (s *Service) start(desc JobDescriptor, allowExisting bool) error {
	if err := ValidateName(desc.Name); err != nil {
		return err
	}
	if desc.SegmentSeconds <= 0 {
		desc.SegmentSeconds = DefaultSegmentSeconds
	}

	if !allowExisting {
		pending := PendingPlaylistPath(s.pendingDir, desc.Name)
		index := filepath.Join(s.finishedDir, desc.Name, archiveIndexName)
		if fileExists(pending) || fileExists(index) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, desc.Name)
		}
	}

	stop := NewStopHandle()
	if err := s.registry.Start(desc, stop); err != nil {
		return err
	}
	s.supervisor.Launch(desc, stop.Done())

	s.log.Info("recording started",
		slog.String("name", desc.Name),
		slog.String("input_url", desc.InputURL),
		slog.Int("hls_time", desc.SegmentSeconds),
		slog.Bool("resume", allowExisting))
	if s.metrics != nil {
		s.metrics.IncRecordingsStarted()
	}
	return nil
}

// Stop cancels the named recording's supervisor. Stopping a name that
// is not running is a no-op; the return reports whether a running
// recording was actually stopped.
func (s *Service) Stop(name string) bool {
	stopped := s.registry.Stop(name)
	if stopped {
		s.log.Info("recording stopped", slog.String("name", name))
		if s.metrics != nil {
			s.metrics.IncRecordingsStopped()
		}
	}
	return stopped
}

// ActiveCount returns the number of running recordings.
func (s *Service) ActiveCount() int {
	return s.registry.ActiveCount()
}

// ListLive lists pending recordings by scanning the pending directory
// for playlist files. An orphaned pending playlist left behind by a
// failed cleanup still shows up here, which is intended.
func (s *Service) ListLive() ([]ListItem, error) {
	entries, err := os.ReadDir(s.pendingDir)
	if os.IsNotExist(err) {
		return []ListItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan pending directory: %w", err)
	}

	items := []ListItem{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".m3u8") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".m3u8")
		items = append(items, ListItem{
			Name:     name,
			Playlist: "/live/" + e.Name(),
		})
	}
	return items, nil
}

// ListFinished lists archived recordings: subdirectories of the
// finished directory that contain an index playlist.
func (s *Service) ListFinished() ([]ListItem, error) {
	entries, err := os.ReadDir(s.finishedDir)
	if os.IsNotExist(err) {
		return []ListItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan finished directory: %w", err)
	}

	items := []ListItem{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !fileExists(filepath.Join(s.finishedDir, e.Name(), archiveIndexName)) {
			continue
		}
		items = append(items, ListItem{
			Name:     e.Name(),
			Playlist: "/vod/" + e.Name() + "/" + archiveIndexName,
		})
	}
	return items, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
