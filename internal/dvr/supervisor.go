package dvr

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"hls-dvr/internal/platform/metrics"
)

// DefaultRestartDelay is the pause between capture process restarts.
const DefaultRestartDelay = 3 * time.Second

// Supervisor runs one background task per recording job: it spawns the
// capture process, races its exit against the job's stop signal, and
// restarts it after a delay when it exits with a failure. Restarts are
// unbounded: a capture keeps running until the operator stops it.
type Supervisor struct {
	registry     *Registry
	log          *slog.Logger
	metrics      *metrics.Metrics
	pendingDir   string
	restartDelay time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	// newCommand builds the capture process invocation. Overridable in
	// tests to supervise something other than ffmpeg.
	newCommand func(desc JobDescriptor) *exec.Cmd
}

// NewSupervisor returns a Supervisor spawning binary (normally
// "ffmpeg") with output under pendingDir. Metrics may be nil.
func NewSupervisor(registry *Registry, log *slog.Logger, m *metrics.Metrics, binary, pendingDir string, restartDelay time.Duration) *Supervisor {
	if restartDelay <= 0 {
		restartDelay = DefaultRestartDelay
	}
	s := &Supervisor{
		registry:     registry,
		log:          log,
		metrics:      m,
		pendingDir:   pendingDir,
		restartDelay: restartDelay,
		shutdown:     make(chan struct{}),
	}
	s.newCommand = func(desc JobDescriptor) *exec.Cmd {
		return exec.Command(binary, ffmpegArgs(pendingDir, desc)...)
	}
	return s
}

// Launch starts the supervision loop for desc in its own goroutine. The
// task's lifetime is independent of the caller; it deregisters itself
// through Registry.Finish when the loop exits for any reason.
func (s *Supervisor) Launch(desc JobDescriptor, stop <-chan struct{}) {
	s.wg.Add(1)
	go s.run(desc, stop)
}

// Shutdown kills all supervised capture processes and waits for their
// loops to exit. Jobs are NOT deregistered: the persisted snapshot must
// keep them so the next daemon run resumes capture.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
	s.wg.Wait()
}

func (s *Supervisor) run(desc JobDescriptor, stop <-chan struct{}) {
	defer s.wg.Done()
	deregister := true
	defer func() {
		if deregister {
			s.registry.Finish(desc.Name)
		}
	}()

	for {
		cmd := s.newCommand(desc)
		s.log.Info("starting capture process",
			slog.String("name", desc.Name),
			slog.String("command", strings.Join(cmd.Args, " ")))

		if err := cmd.Start(); err != nil {
			// Tool missing or not executable: fatal for this job, no retry.
			s.log.Error("capture process could not be started",
				slog.String("name", desc.Name),
				slog.String("error", err.Error()))
			return
		}

		waitCh := make(chan error, 1)
		go func() { waitCh <- cmd.Wait() }()

		select {
		case err := <-waitCh:
			if err == nil {
				// The tool ended the stream gracefully; no more segments
				// will arrive.
				s.log.Info("capture process completed", slog.String("name", desc.Name))
				return
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				s.log.Warn("capture process exited with failure",
					slog.String("name", desc.Name),
					slog.Int("exit_code", exitErr.ExitCode()))
			} else {
				s.log.Error("waiting for capture process failed",
					slog.String("name", desc.Name),
					slog.String("error", err.Error()))
			}
		case <-stop:
			_ = cmd.Process.Kill()
			<-waitCh
			s.log.Info("capture cancelled", slog.String("name", desc.Name))
			return
		case <-s.shutdown:
			_ = cmd.Process.Kill()
			<-waitCh
			s.log.Info("capture halted for daemon shutdown", slog.String("name", desc.Name))
			deregister = false
			return
		}

		if s.metrics != nil {
			s.metrics.IncCaptureRestarts()
		}
		s.log.Info("restarting capture",
			slog.String("name", desc.Name),
			slog.Duration("delay", s.restartDelay))

		select {
		case <-time.After(s.restartDelay):
		case <-stop:
			return
		case <-s.shutdown:
			deregister = false
			return
		}
	}
}

// ffmpegArgs builds the fixed capture invocation: copy codecs into an
// HLS event playlist with unbounded list size, appending across
// restarts with discontinuity markers, wall-clock timestamps and atomic
// segment writes, under a timestamped segment filename pattern.
func ffmpegArgs(pendingDir string, desc JobDescriptor) []string {
	playlist := filepath.Join(pendingDir, desc.Name+".m3u8")
	segPattern := filepath.Join(pendingDir, desc.Name+"_seg_%Y-%m-%d_%H-%M-%S_%03d.ts")

	return []string{
		"-y",
		"-i", desc.InputURL,
		"-c", "copy",
		"-f", "hls",
		"-hls_time", strconv.Itoa(desc.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_playlist_type", "event",
		"-hls_flags", "append_list+discont_start+program_date_time+temp_file",
		"-strftime", "1",
		"-hls_segment_filename", segPattern,
		playlist,
	}
}

// PendingPlaylistPath returns the pending playlist path for name.
func PendingPlaylistPath(pendingDir, name string) string {
	return filepath.Join(pendingDir, fmt.Sprintf("%s.m3u8", name))
}
