package speech

import (
	"context"
	"errors"
	"fmt"
)

// Common errors for the speech engine.
var (
	// Backend errors
	ErrInterrupted        = errors.New("utterance interrupted")
	ErrEngineNotAvailable = errors.New("speech engine is not available")
	ErrNoBackendAvailable = errors.New("no speech backend available")
	ErrNoAudio            = errors.New("backend produced no audio")
	ErrTextTooLong        = errors.New("text exceeds backend limit")

	// Input errors
	ErrEmptyText = errors.New("empty text provided")

	// Session errors
	ErrSessionClosed = errors.New("session has been closed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsSelfInflicted reports whether err was caused by the engine's own
// cancel or reset rather than by a backend failure.
func IsSelfInflicted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}

// BackendError describes a failure inside one of the speech backends.
type BackendError struct {
	Kind      Kind   // Backend that failed
	Op        string // Operation being performed, e.g. "request", "play"
	Err       error  // The underlying error
	Temporary bool   // A retry by the caller may succeed
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s backend: %s failed", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s backend: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err with the backend kind and operation. It returns
// nil when err is nil.
func NewBackendError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var temporary bool
	var te interface{ Temporary() bool }
	if errors.As(err, &te) {
		temporary = te.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		temporary = true
	}
	return &BackendError{Kind: kind, Op: op, Err: err, Temporary: temporary}
}
