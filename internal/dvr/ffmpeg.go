package dvr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

var (
	requiredProtocols = []string{"https", "tls"}
	requiredMuxers    = []string{"hls"}
)

// CheckFFmpeg verifies that the capture tool at binary supports the
// input protocols and output muxers this daemon needs. It is a one-time
// startup gate: a missing capability is a fatal configuration problem,
// not something to discover mid-recording.
func CheckFFmpeg(ctx context.Context, binary string) error {
	protocols, err := capabilityOutput(ctx, binary, "-protocols")
	if err != nil {
		return err
	}
	for _, p := range requiredProtocols {
		if !hasWord(protocols, p) {
			return fmt.Errorf("%s missing required protocol: %s", binary, p)
		}
	}

	muxers, err := capabilityOutput(ctx, binary, "-muxers")
	if err != nil {
		return err
	}
	for _, m := range requiredMuxers {
		if !hasWord(muxers, m) {
			return fmt.Errorf("%s missing required muxer: %s", binary, m)
		}
	}
	return nil
}

func capabilityOutput(ctx context.Context, binary, flag string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, flag).Output()
	if err != nil {
		return "", fmt.Errorf("run %s %s: %w", binary, flag, err)
	}
	return string(out), nil
}

// hasWord reports whether any whitespace-separated token on any line of
// output equals word. ffmpeg capability listings prefix entries with
// mode flags, so substring matching would be too loose.
func hasWord(output, word string) bool {
	for _, line := range strings.Split(output, "\n") {
		for _, tok := range strings.Fields(line) {
			if tok == word {
				return true
			}
		}
	}
	return false
}
