package dvr

import "errors"

var (
	// ErrInvalidName is returned when a recording name contains
	// characters other than ASCII alphanumerics, '_' or '-', or is empty.
	ErrInvalidName = errors.New("invalid recording name")

	// ErrAlreadyRunning is returned when starting a recording whose name
	// is already registered.
	ErrAlreadyRunning = errors.New("recording is already running")

	// ErrAlreadyExists is returned when a fresh (non-resume) start finds
	// a pending playlist or an archived index for the name on disk.
	ErrAlreadyExists = errors.New("recording already exists")

	// ErrNoSuchPendingRecording is returned by finalize when the pending
	// playlist for the name does not exist.
	ErrNoSuchPendingRecording = errors.New("no such pending recording")

	// ErrAlreadyFinalized is returned by finalize when the archive index
	// for the name already exists.
	ErrAlreadyFinalized = errors.New("recording already finalized")

	// ErrPathEscape is returned when a playlist segment reference
	// resolves outside the pending directory.
	ErrPathEscape = errors.New("segment path escapes pending directory")

	// ErrSegmentRelocation is returned when a segment could not be moved
	// into the archive directory; the pending state is left intact.
	ErrSegmentRelocation = errors.New("segment relocation failed")
)
