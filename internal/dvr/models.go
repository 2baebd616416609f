package dvr

// DefaultSegmentSeconds is the default HLS segment duration used when a
// start request does not specify one.
const DefaultSegmentSeconds = 6

// JobDescriptor describes one recording job. It is immutable after
// creation and is the unit of persistence: the snapshot file holds one
// descriptor per active job.
type JobDescriptor struct {
	Name           string `json:"name"`
	InputURL       string `json:"input_url"`
	SegmentSeconds int    `json:"hls_time"`
}

// ListItem is one entry in a live or finished recording listing.
type ListItem struct {
	Name     string `json:"name"`
	Playlist string `json:"playlist"`
}

// StartRequest is the JSON payload for starting a recording.
// Resume skips the on-disk collision check so an operator can re-attach
// to a recording that already has a pending playlist.
type StartRequest struct {
	Name     string `json:"name"`
	InputURL string `json:"input_url"`
	HLSTime  int    `json:"hls_time"`
	Resume   bool   `json:"resume"`
}
