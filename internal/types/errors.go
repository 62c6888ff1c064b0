package types

import (
	"errors"
	"fmt"
)

// Category sentinels. Every typed error below unwraps to exactly one of
// these, so callers can classify failures with errors.Is without matching
// concrete types.
var (
	// ErrSource covers unreachable, unreadable, or unwritable resources.
	ErrSource = errors.New("source error")

	// ErrFormat covers registry failures: no match, duplicate
	// registration, or a format that lacks the requested mode.
	ErrFormat = errors.New("format error")

	// ErrSession covers misuse of a reader or writer session or its
	// request: use-after-close, illegal random access, and access
	// against the wrong direction.
	ErrSession = errors.New("session error")

	// ErrLimit covers the materialization byte-size guard.
	ErrLimit = errors.New("resource limit exceeded")
)

// UnrecognizedSourceError is returned when an input's shape does not map
// to any supported source kind.
type UnrecognizedSourceError struct {
	Input string // description of the rejected input, usually its Go type
	Mode  Mode
}

func (e *UnrecognizedSourceError) Error() string {
	return fmt.Sprintf("cannot %s %s: unrecognized source kind", e.Mode, e.Input)
}

func (e *UnrecognizedSourceError) Unwrap() error { return ErrSource }

// SourceUnreachableError is returned when a resource cannot be reached or
// read: missing files, network failures, absent archive members.
type SourceUnreachableError struct {
	Resource string
	Reason   string
	Err      error // underlying cause, may be nil
}

func (e *SourceUnreachableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Resource, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
}

func (e *SourceUnreachableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSource, e.Err}
	}
	return []error{ErrSource}
}

// NotWritableError is returned when writing is requested against a target
// that cannot be written (a URL, an archive member, a read-only stream).
type NotWritableError struct {
	Resource string
	Reason   string
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("%s: not writable: %s", e.Resource, e.Reason)
}

func (e *NotWritableError) Unwrap() error { return ErrSource }

// TooLargeError is returned when materializing a resource would exceed
// the configured byte limit. Size is the measured size at the point the
// guard tripped, which may be a lower bound for streaming sources.
type TooLargeError struct {
	Resource string
	Size     int64
	Limit    int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s: resource exceeds size limit (%d > %d bytes)",
		e.Resource, e.Size, e.Limit)
}

func (e *TooLargeError) Unwrap() error { return ErrLimit }

// NoMatchingFormatError is returned when neither hint, extension, nor
// content sniffing selects a format for a resource.
type NoMatchingFormatError struct {
	Resource string
	Ext      string // inferred extension, empty if none
	Mode     Mode
}

func (e *NoMatchingFormatError) Error() string {
	if e.Ext != "" {
		return fmt.Sprintf("%s: no registered format matches extension %q for %s",
			e.Resource, e.Ext, e.Mode)
	}
	return fmt.Sprintf("%s: no registered format matches for %s", e.Resource, e.Mode)
}

func (e *NoMatchingFormatError) Unwrap() error { return ErrFormat }

// ModeNotSupportedError is returned when a format was selected (by hint
// or by the session layer) but does not declare the requested capability.
type ModeNotSupportedError struct {
	Format   string
	Resource string
	Mode     Mode
}

func (e *ModeNotSupportedError) Error() string {
	return fmt.Sprintf("%s: format %s does not support %s", e.Resource, e.Format, e.Mode)
}

func (e *ModeNotSupportedError) Unwrap() error { return ErrFormat }

// DuplicateFormatError is returned when registering a format whose name
// is already taken.
type DuplicateFormatError struct {
	Name string
}

func (e *DuplicateFormatError) Error() string {
	return fmt.Sprintf("format %q is already registered", e.Name)
}

func (e *DuplicateFormatError) Unwrap() error { return ErrFormat }

// SessionClosedError is returned by any data operation on a session whose
// Close has already run.
type SessionClosedError struct {
	Op       string
	Resource string
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("%s: %s on closed session", e.Resource, e.Op)
}

func (e *SessionClosedError) Unwrap() error { return ErrSession }

// SequentialAccessError is returned when a frame index arrives out of
// order on a reader that only supports sequential access, either because
// the format lacks random access or because its length is unknown.
type SequentialAccessError struct {
	Format string
	Index  int // requested index
	Next   int // only index currently readable
}

func (e *SequentialAccessError) Error() string {
	return fmt.Sprintf("format %s requires sequential access: requested frame %d, next is %d",
		e.Format, e.Index, e.Next)
}

func (e *SequentialAccessError) Unwrap() error { return ErrSession }
