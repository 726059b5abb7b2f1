// Package faults provides the structured failure taxonomy for a refresh
// cycle. Every fatal error that crosses a package boundary is a *Fault
// carrying a Kind, so the caller can log and report the failure reason
// without string matching.
package faults

import (
	"errors"
	"fmt"
)

// Kind identifies the stage of a refresh cycle that failed.
type Kind string

const (
	// ServerUnavailable means the availability probe got no 200 response.
	ServerUnavailable Kind = "server_unavailable"

	// LaunchError means the browser process could not be started.
	LaunchError Kind = "launch_error"

	// NavigationTimeout means the target page did not load in time.
	NavigationTimeout Kind = "navigation_timeout"

	// CaptureError means the screenshot could not be taken or decoded.
	CaptureError Kind = "capture_error"

	// OverallTimeout means the whole cycle exceeded its deadline.
	OverallTimeout Kind = "overall_timeout"
)

// Fault is the structured failure value a refresh cycle propagates.
// Teardown degradation is deliberately not a Kind: a forced browser kill
// is logged as a warning and never fails a cycle.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("[%s] %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (f *Fault) Unwrap() error { return f.Cause }

// New creates a new Fault with the given kind and message.
func New(kind Kind, msg string) *Fault {
	return &Fault{Kind: kind, Message: msg}
}

// Newf creates a new Fault with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a Fault.
func Wrap(err error, kind Kind, msg string) *Fault {
	return &Fault{Kind: kind, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf returns the Kind of the first Fault in err's chain, or the empty
// string when err is nil or carries no Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains a Fault of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
