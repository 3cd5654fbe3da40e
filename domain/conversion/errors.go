package conversion

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every ValidationError
var ErrInvalidInput = errors.New("invalid input")

// Validation reasons reported to the user
const (
	ReasonNoUsableLink   = "no usable link"
	ReasonNoFileSelected = "no file selected"
	ReasonNoOutputDir    = "no output directory"
)

// ValidationError is returned when the user input cannot form a request.
// No job is started.
type ValidationError struct {
	Reason string
}

func invalidInput(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// FetchError covers every failure to pull remote media
type FetchError struct {
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Detail == "" {
		return "fetch failed"
	}
	return "fetch failed: " + e.Detail
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Extract operations
const (
	OpDecode = "decode"
	OpWrite  = "write"
)

// ExtractError is a decode or encode failure in the audio extractor
type ExtractError struct {
	Op     string // OpDecode or OpWrite
	Detail string
	Err    error
}

// NewDecodeError wraps err as a decode failure
func NewDecodeError(detail string, err error) *ExtractError {
	return &ExtractError{Op: OpDecode, Detail: detail, Err: err}
}

// NewWriteError wraps err as a write failure
func NewWriteError(detail string, err error) *ExtractError {
	return &ExtractError{Op: OpWrite, Detail: detail, Err: err}
}

func (e *ExtractError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
