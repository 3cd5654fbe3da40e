package update

import "errors"

// ErrNotPackaged means the running program cannot replace itself
var ErrNotPackaged = errors.New("not running from a packaged binary")

// UpdateCheckError means the manifest was unreachable or malformed.
// It is logged and never shown to the user.
type UpdateCheckError struct {
	Err error
}

func (e *UpdateCheckError) Error() string {
	return "update check failed: " + e.Err.Error()
}

func (e *UpdateCheckError) Unwrap() error {
	return e.Err
}

// UpdateDownloadError means the new binary could not be downloaded.
// The running executable is untouched.
type UpdateDownloadError struct {
	URL string
	Err error
}

func (e *UpdateDownloadError) Error() string {
	return "update download failed: " + e.Err.Error()
}

func (e *UpdateDownloadError) Unwrap() error {
	return e.Err
}

// SwapError means the replace helper could not be written or started.
// The old executable remains in place.
type SwapError struct {
	Err error
}

func (e *SwapError) Error() string {
	return "update swap failed: " + e.Err.Error()
}

func (e *SwapError) Unwrap() error {
	return e.Err
}
