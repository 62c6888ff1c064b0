package frameio

import (
	"github.com/mferrell/frameio/internal/registry"
	"github.com/mferrell/frameio/internal/types"
)

// Re-exported contracts. The canonical definitions live in
// internal/types so codec packages can share them without importing the
// public package.

// Format describes one registered format: identity, claimed extensions,
// an optional content signature, capabilities, and the codec factories.
type Format = types.Format

// Capabilities declares what a Format can do.
type Capabilities = types.Capabilities

// Metadata carries per-frame, format-specific key/value data.
type Metadata = types.Metadata

// Frame is one data unit plus the metadata its codec attached.
type Frame = types.Frame

// Handle is the uniform byte-addressable view handed to codecs. Custom
// formats receive one in their NewDecoder/NewEncoder factories.
type Handle = types.Handle

// Decoder reads frames for one session.
type Decoder = types.Decoder

// Encoder writes frames for one session.
type Encoder = types.Encoder

// LengthUnknown is returned by Reader.Length when the frame count is not
// knowable before the stream has been fully consumed.
const LengthUnknown = types.LengthUnknown

// RegisterFormat adds a format to the process-wide registry, making it
// visible to every subsequent GetReader and GetWriter call.
//
// Names must be unique; registering a taken name returns a
// DuplicateFormatError. When several formats claim the same extension or
// signature, the one registered last wins, so plugins can deliberately
// shadow built-ins.
//
//	err := frameio.RegisterFormat(&frameio.Format{
//	    Name:       "NPY",
//	    Extensions: []string{".npy"},
//	    Caps:       frameio.Capabilities{Read: true},
//	    Sniff:      func(p []byte) bool { return bytes.HasPrefix(p, []byte("\x93NUMPY")) },
//	    NewDecoder: newNpyDecoder,
//	})
func RegisterFormat(f *Format) error {
	return registry.Default.Register(f)
}

// Formats returns all registered formats in registration order.
func Formats() []*Format {
	return registry.Default.Formats()
}

// Lookup returns the format registered under name (case-insensitive),
// or nil.
func Lookup(name string) *Format {
	return registry.Default.Lookup(name)
}

// KnownExtensions returns every extension claimed by a registered
// format, sorted.
func KnownExtensions() []string {
	return registry.Default.KnownExtensions()
}
