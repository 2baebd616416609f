package dvr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestHasWord(t *testing.T) {
	protocols := "Supported file protocols:\n" +
		"Input:\n" +
		"  https\n" +
		"  tls\n" +
		"  httpsproxy\n"

	if !hasWord(protocols, "https") {
		t.Error("https should be found")
	}
	if !hasWord(protocols, "tls") {
		t.Error("tls should be found")
	}
	if hasWord(protocols, "http") {
		t.Error("http is not listed as a full token")
	}
	if hasWord(protocols, "proxy") {
		t.Error("substring of a token must not match")
	}
}

// stubFFmpeg writes an executable script that prints the given output
// for any flag, standing in for the real binary.
func stubFFmpeg(t *testing.T, output string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub not portable to windows")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\necho '" + output + "'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckFFmpeg_all_capabilities_present(t *testing.T) {
	bin := stubFFmpeg(t, "https tls hls")
	if err := CheckFFmpeg(context.Background(), bin); err != nil {
		t.Errorf("CheckFFmpeg: %v", err)
	}
}

func TestCheckFFmpeg_missing_protocol(t *testing.T) {
	bin := stubFFmpeg(t, "hls")
	err := CheckFFmpeg(context.Background(), bin)
	if err == nil || !strings.Contains(err.Error(), "protocol") {
		t.Errorf("expected missing-protocol error, got %v", err)
	}
}

func TestCheckFFmpeg_missing_muxer(t *testing.T) {
	bin := stubFFmpeg(t, "https tls")
	err := CheckFFmpeg(context.Background(), bin)
	if err == nil || !strings.Contains(err.Error(), "muxer") {
		t.Errorf("expected missing-muxer error, got %v", err)
	}
}

func TestCheckFFmpeg_binary_missing(t *testing.T) {
	if err := CheckFFmpeg(context.Background(), "/nonexistent/ffmpeg"); err == nil {
		t.Error("expected error for missing binary")
	}
}
