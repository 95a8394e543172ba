package reconcile

import (
	"errors"
	"fmt"
)

// ErrFatalCategory marks a category resolution failure the policy refused to tolerate.
var ErrFatalCategory = errors.New("unknown category code")

// TransportError is a network failure or unexpected status from a collaborator.
// It is never retried by the engine and always ends the run.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CategoryResolutionError means the destination has no category for Code.
type CategoryResolutionError struct {
	Code string
	Err  error
}

func (e *CategoryResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no destination category for code %s", e.Code)
	}
	return fmt.Sprintf("no destination category for code %s: %v", e.Code, e.Err)
}

func (e *CategoryResolutionError) Unwrap() error { return e.Err }

// UploadError is a rejection from the destination during upload.
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload rejected with status %d: %s", e.Status, e.Message)
}

// MalformedResponseError means the catalog response no longer matches the expected structure.
type MalformedResponseError struct {
	Detail string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected response format: %s: %v", e.Detail, e.Err)
	}
	return "unexpected response format: " + e.Detail
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsCategoryResolution reports whether err is (or wraps) a *CategoryResolutionError.
func IsCategoryResolution(err error) bool {
	var cre *CategoryResolutionError
	return errors.As(err, &cre)
}
