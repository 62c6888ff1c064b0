package frameio

import (
	"github.com/mferrell/frameio/internal/types"
)

// Category sentinels. Every error returned by this package unwraps to
// exactly one of these, so callers can classify failures with errors.Is
// without matching concrete types.
var (
	// ErrSource covers unreachable, unreadable, or unwritable resources.
	ErrSource = types.ErrSource

	// ErrFormat covers format selection failures: no match, duplicate
	// registration, or a format lacking the requested mode.
	ErrFormat = types.ErrFormat

	// ErrSession covers misuse of a reader or writer session.
	ErrSession = types.ErrSession

	// ErrLimit covers the materialization byte-size guard.
	ErrLimit = types.ErrLimit
)

// Typed errors, re-exported from internal/types for errors.As.

// UnrecognizedSourceError: the input's shape maps to no supported
// source kind.
type UnrecognizedSourceError = types.UnrecognizedSourceError

// SourceUnreachableError: the resource cannot be reached or read.
type SourceUnreachableError = types.SourceUnreachableError

// NotWritableError: writing was requested against a read-only target.
type NotWritableError = types.NotWritableError

// TooLargeError: materializing the resource would exceed the byte limit.
type TooLargeError = types.TooLargeError

// NoMatchingFormatError: neither hint, extension, nor signature selected
// a format.
type NoMatchingFormatError = types.NoMatchingFormatError

// ModeNotSupportedError: the selected format lacks the requested
// capability.
type ModeNotSupportedError = types.ModeNotSupportedError

// DuplicateFormatError: the format name is already registered.
type DuplicateFormatError = types.DuplicateFormatError

// SessionClosedError: a data operation ran on a closed session.
type SessionClosedError = types.SessionClosedError

// SequentialAccessError: a frame index arrived out of order on a reader
// that only supports sequential access.
type SequentialAccessError = types.SequentialAccessError
