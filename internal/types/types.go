// Package types holds the contracts shared between the public frameio
// package, the format registry, and codec implementations.
package types

import "io"

// Mode says whether a session reads frames from a source or writes
// frames to a destination.
type Mode int

const (
	// ModeRead opens a source for reading frames.
	ModeRead Mode = iota
	// ModeWrite opens a destination for writing frames.
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// LengthUnknown is returned by Decoder.Length when the frame count cannot
// be known before the stream has been fully consumed.
const LengthUnknown = -1

// Metadata carries per-frame, format-specific key/value data. frameio does
// not interpret it; codecs define their own keys.
type Metadata map[string]any

// Frame is one addressable data unit within a resource, together with the
// metadata the codec attached to it.
type Frame struct {
	Data []byte
	Meta Metadata
}

// Handle is the uniform byte-addressable view of a normalized source or
// destination. It is what a codec receives instead of a path, URL, buffer,
// or open stream: the request layer behind it materializes remote and
// archive-embedded resources on demand.
//
// A Handle is not safe for concurrent use.
type Handle interface {
	// Name returns an identifier for the underlying resource, suitable
	// for error messages (a path, a URL, "<bytes>", ...).
	Name() string

	// Mode reports whether the handle was opened for reading or writing.
	Mode() Mode

	// Peek returns up to n bytes from the start of the resource without
	// disturbing any cursor. It is repeatable and side-effect free from
	// the caller's point of view; the request layer caches the prefix.
	// Read mode only.
	Peek(n int) ([]byte, error)

	// ReaderAt returns random access to the full resource along with its
	// size. Non-local sources are materialized first. Read mode only.
	ReaderAt() (io.ReaderAt, int64, error)

	// Reader returns a seekable cursor over the resource. Read mode only.
	Reader() (io.ReadSeeker, error)

	// Writer returns the byte sink for the destination, created lazily on
	// first use. Write mode only.
	Writer() (io.Writer, error)

	// LocalPath returns a filesystem path for codecs that need native
	// file access. If the source is not already a local file it is
	// materialized into a private temp file first. Read mode only.
	LocalPath() (string, error)
}

// Decoder is implemented by codecs that read frames. A Decoder is created
// by a Format's NewDecoder factory, bound to a single Handle, and closed
// by the owning reader session.
type Decoder interface {
	// Length returns the number of frames, or LengthUnknown for
	// streaming resources whose count is not known up front.
	Length() int

	// Frame returns the data and metadata of the frame at index. For
	// unknown-length resources, reading past the end returns io.EOF.
	// The session layer guarantees indices arrive strictly increasing
	// unless the format declares random access and the length is known.
	Frame(index int) ([]byte, Metadata, error)

	// Close releases codec-held state. It does not close the Handle.
	Close() error
}

// Encoder is implemented by codecs that write frames. Append is
// sequential-only; Close flushes any trailer whose value (such as the
// total frame count) is only knowable once writing is complete.
type Encoder interface {
	Append(data []byte, meta Metadata) error
	Close() error
}

// Capabilities declares what a format can do. The registry consults it
// during matching and the session layer enforces it at access time.
type Capabilities struct {
	// Read is true if the format can decode frames.
	Read bool
	// Write is true if the format can encode frames.
	Write bool
	// MultiFrame is true if a single resource may hold more than one frame.
	MultiFrame bool
	// RandomAccess is true if the decoder supports out-of-order frame
	// indices (only honored when the length is known).
	RandomAccess bool
}

// Format describes one registered format: its identity, the extensions it
// claims, a signature probe for content sniffing, and the factories that
// produce codec sessions. Entries are immutable after registration.
type Format struct {
	// Name uniquely identifies the format within a registry ("FCF").
	Name string

	// Description is a one-line human readable summary.
	Description string

	// Extensions lists the file extensions the format claims, lowercase
	// with a leading dot (".fcf"). May be empty for sniff-only formats.
	Extensions []string

	// Caps declares the format's capabilities.
	Caps Capabilities

	// Sniff reports whether a byte prefix looks like this format. nil
	// means the format cannot be detected by content and is selected by
	// extension or explicit hint only.
	Sniff func(prefix []byte) bool

	// SniffLen is the number of prefix bytes Sniff wants. Zero means the
	// registry default is enough.
	SniffLen int

	// NewDecoder binds a read session to a handle. nil if !Caps.Read.
	NewDecoder func(h Handle) (Decoder, error)

	// NewEncoder binds a write session to a handle. nil if !Caps.Write.
	NewEncoder func(h Handle) (Encoder, error)
}
