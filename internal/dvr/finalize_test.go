package dvr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePendingRecording(t *testing.T, pending, name, playlist string, segments ...string) {
	t.Helper()
	for _, seg := range segments {
		if err := os.WriteFile(filepath.Join(pending, seg), []byte("data-"+seg), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(pending, name+".m3u8"), []byte(playlist), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFinalize_moves_segments_and_rewrites_playlist(t *testing.T) {
	svc, _, pending, finished := newTestService(t)

	writePendingRecording(t, pending, "cam1",
		"#EXTM3U\n#EXT-X-PLAYLIST-TYPE:EVENT\nseg_0.ts\nseg_1.ts\n",
		"seg_0.ts", "seg_1.ts")

	if err := svc.Finalize("cam1"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(finished, "cam1", "index.m3u8"))
	if err != nil {
		t.Fatalf("archive index missing: %v", err)
	}
	want := "#EXTM3U\n#EXT-X-PLAYLIST-TYPE:VOD\nseg_0.ts\nseg_1.ts\n#EXT-X-ENDLIST\n"
	if string(index) != want {
		t.Errorf("archive index:\ngot  %q\nwant %q", string(index), want)
	}

	for _, seg := range []string{"seg_0.ts", "seg_1.ts"} {
		if _, err := os.Stat(filepath.Join(finished, "cam1", seg)); err != nil {
			t.Errorf("segment %s not in archive: %v", seg, err)
		}
		if _, err := os.Stat(filepath.Join(pending, seg)); !os.IsNotExist(err) {
			t.Errorf("segment %s still in pending dir", seg)
		}
	}

	if _, err := os.Stat(filepath.Join(pending, "cam1.m3u8")); !os.IsNotExist(err) {
		t.Error("pending playlist should be removed after finalize")
	}
}

func TestFinalize_stops_running_recording_first(t *testing.T) {
	svc, reg, pending, _ := newTestService(t)

	if err := svc.Start(StartRequest{Name: "cam1", InputURL: "https://e/s"}); err != nil {
		t.Fatal(err)
	}
	writePendingRecording(t, pending, "cam1", "#EXTM3U\nseg_0.ts\n", "seg_0.ts")

	if err := svc.Finalize("cam1"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if reg.IsRunning("cam1") {
		t.Error("finalize should have stopped the recording")
	}
}

func TestFinalize_no_pending_recording(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.Finalize("ghost")
	if !errors.Is(err, ErrNoSuchPendingRecording) {
		t.Errorf("expected ErrNoSuchPendingRecording, got %v", err)
	}
}

func TestFinalize_already_finalized(t *testing.T) {
	svc, _, pending, _ := newTestService(t)

	writePendingRecording(t, pending, "cam1", "#EXTM3U\nseg_0.ts\n", "seg_0.ts")
	if err := svc.Finalize("cam1"); err != nil {
		t.Fatal(err)
	}

	// The pending playlist is gone now, but the error must still say
	// "already finalized", not "no such pending recording".
	err := svc.Finalize("cam1")
	if !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("expected ErrAlreadyFinalized, got %v", err)
	}
}

func TestFinalize_invalid_name(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.Finalize("../escape")
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestFinalize_rejects_escaping_segment(t *testing.T) {
	svc, _, pending, finished := newTestService(t)

	writePendingRecording(t, pending, "cam1", "#EXTM3U\n../../etc/passwd\n")

	err := svc.Finalize("cam1")
	if !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
	// Pending state stays intact for retry; no archive index was written.
	if _, err := os.Stat(filepath.Join(pending, "cam1.m3u8")); err != nil {
		t.Error("pending playlist should remain after failed finalize")
	}
	if _, err := os.Stat(filepath.Join(finished, "cam1", "index.m3u8")); !os.IsNotExist(err) {
		t.Error("no archive index should exist after failed finalize")
	}
}

func TestFinalize_missing_segment_aborts(t *testing.T) {
	svc, _, pending, _ := newTestService(t)

	writePendingRecording(t, pending, "cam1", "#EXTM3U\nseg_0.ts\nmissing.ts\n", "seg_0.ts")

	err := svc.Finalize("cam1")
	if !errors.Is(err, ErrSegmentRelocation) {
		t.Errorf("expected ErrSegmentRelocation, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(pending, "cam1.m3u8")); err != nil {
		t.Error("pending playlist should remain after failed finalize")
	}
}

func TestFinalize_resumes_after_partial_run(t *testing.T) {
	svc, _, pending, finished := newTestService(t)

	writePendingRecording(t, pending, "cam1",
		"#EXTM3U\nseg_0.ts\nseg_1.ts\n",
		"seg_0.ts", "seg_1.ts")

	// Simulate a crashed earlier finalize that already moved seg_0.
	if err := os.MkdirAll(filepath.Join(finished, "cam1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(filepath.Join(pending, "seg_0.ts"), filepath.Join(finished, "cam1", "seg_0.ts")); err != nil {
		t.Fatal(err)
	}

	if err := svc.Finalize("cam1"); err != nil {
		t.Fatalf("finalize should resume past already-moved segments: %v", err)
	}
	for _, seg := range []string{"seg_0.ts", "seg_1.ts"} {
		if _, err := os.Stat(filepath.Join(finished, "cam1", seg)); err != nil {
			t.Errorf("segment %s not in archive: %v", seg, err)
		}
	}
}

func TestFinalize_works_for_naturally_ended_recording(t *testing.T) {
	// No registry entry at all: the capture tool ended the stream on its
	// own and the supervisor already finished the job.
	svc, _, pending, finished := newTestService(t)

	writePendingRecording(t, pending, "cam1", "#EXTM3U\nseg_0.ts\n", "seg_0.ts")

	if err := svc.Finalize("cam1"); err != nil {
		t.Fatalf("Finalize without a running job: %v", err)
	}
	if _, err := os.Stat(filepath.Join(finished, "cam1", "index.m3u8")); err != nil {
		t.Error("archive index should exist")
	}
}
