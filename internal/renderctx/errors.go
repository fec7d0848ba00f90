// Package renderctx holds cross-cutting types shared by every stage of the
// render pipeline: structured errors and cooperative cancellation.
package renderctx

import (
	"errors"
	"fmt"
)

// Kind classifies a render-pipeline failure per the error taxonomy.
type Kind int

const (
	// KindInternal covers any failure that doesn't fit a more specific kind.
	KindInternal Kind = iota
	KindInvalidArgument
	KindNotFound
	KindCacheCorruption
	KindExternalModel
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindCacheCorruption:
		return "cache_corruption"
	case KindExternalModel:
		return "external_model_failure"
	case KindCancelled:
		return "cancelled"
	default:
		return "internal_failure"
	}
}

// Error is a structured render-pipeline error carrying a Kind and, for
// internal failures, a traceback-ish detail string for diagnostics.
type Error struct {
	Kind      Kind
	Message   string
	Traceback string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap creates a Kind-tagged error wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// Invalid is a convenience constructor for KindInvalidArgument.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFound is a convenience constructor for KindNotFound.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind of err, defaulting to KindInternal for plain errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// StatusCode maps an error's Kind to the HTTP status §7 assigns it.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindInvalidArgument:
		return 400
	case KindNotFound:
		return 404
	case KindCancelled:
		return 499
	default:
		return 500
	}
}

// Canceller is a cooperative cancellation token polled between pipeline
// stages (spec §5 "Suspension points"). nil is a valid, never-cancelled token.
type Canceller interface {
	Cancelled() bool
}

// CancelFunc adapts a plain function to Canceller.
type CancelFunc func() bool

func (f CancelFunc) Cancelled() bool { return f != nil && f() }

// Poll returns a KindCancelled error if c reports cancellation, else nil.
func Poll(c Canceller, stage string) error {
	if c != nil && c.Cancelled() {
		return &Error{Kind: KindCancelled, Message: fmt.Sprintf("render cancelled at stage %q", stage)}
	}
	return nil
}
