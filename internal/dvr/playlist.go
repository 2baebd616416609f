package dvr

import (
	"path/filepath"
	"strings"
)

const (
	playlistHeader  = "#EXTM3U"
	playlistTypeTag = "#EXT-X-PLAYLIST-TYPE:"
	playlistEndTag  = "#EXT-X-ENDLIST"
)

// ExtractSegments returns every segment URI in the playlist in file
// order. Every trimmed, non-empty line that does not start with '#' is
// treated as a segment reference; directive lines are skipped.
func ExtractSegments(playlist string) []string {
	var segments []string
	for _, line := range strings.Split(playlist, "\n") {
		l := strings.TrimSpace(line)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		segments = append(segments, l)
	}
	return segments
}

// RewriteToVOD re-emits an event playlist as a finished VOD playlist:
// the header is preserved (inserted if absent), the playlist type is
// forced to VOD (inserted right after the header if absent), segment
// URIs are reduced to their basenames, all other directives (including
// #EXT-X-PROGRAM-DATE-TIME annotations) are copied verbatim, and
// #EXT-X-ENDLIST is appended if missing.
//
// The rewrite is idempotent: applying it to its own output returns the
// same text.
func RewriteToVOD(playlist string) string {
	var b strings.Builder
	hasHeader := false
	hasType := false
	hasEnd := false

	for _, line := range strings.Split(playlist, "\n") {
		l := strings.TrimRight(line, " \t\r")
		if l == "" {
			continue
		}
		switch {
		case strings.HasPrefix(l, playlistHeader) && !hasHeader:
			hasHeader = true
			b.WriteString(playlistHeader)
			b.WriteString("\n")
		case strings.HasPrefix(l, playlistTypeTag):
			if hasType {
				continue
			}
			hasType = true
			b.WriteString(playlistTypeTag)
			b.WriteString("VOD\n")
		case strings.HasPrefix(l, playlistEndTag):
			hasEnd = true
			b.WriteString(playlistEndTag)
			b.WriteString("\n")
		case strings.HasPrefix(l, "#"):
			b.WriteString(l)
			b.WriteString("\n")
		default:
			// Segment URI: keep only the filename component.
			b.WriteString(filepath.Base(l))
			b.WriteString("\n")
		}
	}

	out := b.String()
	if !hasHeader {
		out = playlistHeader + "\n" + out
	}
	if !hasType {
		out = strings.Replace(out, playlistHeader+"\n", playlistHeader+"\n"+playlistTypeTag+"VOD\n", 1)
	}
	if !hasEnd {
		out += playlistEndTag + "\n"
	}
	return out
}
