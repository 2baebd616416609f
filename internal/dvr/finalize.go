package dvr

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// Finalize turns a pending recording into an immutable VOD archive:
// stop the recording if it is still running, move every segment named
// by the pending playlist into <finished>/<name>/, write the rewritten
// playlist as <finished>/<name>/index.m3u8, and remove the pending
// playlist.
//
// Finalize is resumable: a re-run after a crash mid-transition skips
// segments that are already in place. It is not idempotent once the
// archive index exists; re-invocation is rejected with
// ErrAlreadyFinalized.
func (s *Service) Finalize(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	// Best effort: finalize must also work for a recording that already
	// ended naturally.
	if s.registry.Stop(name) {
		s.log.Info("recording stopped for finalize", slog.String("name", name))
	}

	dstDir := filepath.Join(s.finishedDir, name)
	dstPlaylist := filepath.Join(dstDir, archiveIndexName)
	if fileExists(dstPlaylist) {
		return fmt.Errorf("%w: %s", ErrAlreadyFinalized, name)
	}

	srcPlaylist := PendingPlaylistPath(s.pendingDir, name)
	content, err := os.ReadFile(srcPlaylist)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNoSuchPendingRecording, name)
	}
	if err != nil {
		return fmt.Errorf("read pending playlist %s: %w", srcPlaylist, err)
	}

	segments := ExtractSegments(string(content))
	s.log.Info("finalizing recording",
		slog.String("name", name),
		slog.Int("total_segments", len(segments)))

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("create archive directory %s: %w", dstDir, err)
	}

	for _, seg := range segments {
		dst := filepath.Join(dstDir, filepath.Base(seg))
		if fileExists(dst) {
			// Left over from a previous partially-completed finalize.
			s.log.Debug("segment already moved, skipping", slog.String("dst", dst))
			continue
		}

		src, err := ResolveWithin(s.pendingDir, seg)
		if err != nil {
			if errors.Is(err, ErrPathEscape) {
				return err
			}
			return fmt.Errorf("%w: %s: %v", ErrSegmentRelocation, seg, err)
		}
		if err := moveFile(src, dst); err != nil {
			s.log.Error("segment move failed",
				slog.String("name", name),
				slog.String("src", src),
				slog.String("dst", dst),
				slog.String("error", err.Error()))
			return fmt.Errorf("%w: %s: %v", ErrSegmentRelocation, src, err)
		}
	}

	vod := RewriteToVOD(string(content))
	if err := os.WriteFile(dstPlaylist, []byte(vod), 0o644); err != nil {
		return fmt.Errorf("write archive index %s: %w", dstPlaylist, err)
	}

	if err := os.Remove(srcPlaylist); err != nil {
		// Leaves an orphaned pending playlist behind; archive is intact.
		s.log.Error("failed to remove pending playlist",
			slog.String("file", srcPlaylist),
			slog.String("error", err.Error()))
	}

	s.log.Info("recording finalized", slog.String("name", name), slog.String("playlist", dstPlaylist))
	if s.metrics != nil {
		s.metrics.IncRecordingsFinalized()
	}
	return nil
}

// moveFile renames src to dst. When src and dst are on different
// filesystems, rename fails with EXDEV; in that case the file is
// hard-linked into place and the source removed, which still avoids a
// full data copy.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := os.Link(src, dst); err != nil {
		return err
	}
	// The segment is safely in place; a leftover source after a failed
	// remove is only wasted space.
	_ = os.Remove(src)
	return nil
}
