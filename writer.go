package frameio

import (
	"errors"
	"fmt"

	"github.com/mferrell/frameio/internal/registry"
	"github.com/mferrell/frameio/internal/request"
	"github.com/mferrell/frameio/internal/resource"
	"github.com/mferrell/frameio/internal/types"
)

// Writer is an open write session: one destination, one format, one
// encoder.
//
// Frames are appended in order; Close finishes the resource, flushing
// any trailer whose value (such as the total frame count) is only
// knowable at the end:
//
//	w, err := frameio.GetWriter("out.fcf")
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//
//	for _, f := range frames {
//	    if err := w.Append(f.Data, f.Meta); err != nil {
//	        return err
//	    }
//	}
//
// Local destinations are written atomically: bytes go to a temp file in
// the destination directory and the final name only appears on a clean
// Close. A session that saw an Append failure discards the partial
// output on Close instead of committing it.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	req    *request.Request
	format *Format
	enc    types.Encoder

	count  int
	failed bool
	closed bool
}

// GetWriter resolves a destination, selects a format, and opens a write
// session on it.
//
// dest accepts local paths, *bytes.Buffer, *os.File, and plain
// io.Writer values. URLs and archive members are rejected with a
// NotWritableError.
//
// With no WithFormat hint, the format is chosen by the destination's
// extension; there is no content to sniff. An extension claimed by
// several writable formats resolves to the one registered last.
func GetWriter(dest any, opts ...Option) (*Writer, error) {
	options := defaultSessionOptions()
	for _, opt := range opts {
		opt(options)
	}

	desc, err := resource.Normalize(dest, types.ModeWrite)
	if err != nil {
		return nil, err
	}
	req := request.New(desc, options.requestConfig())

	format, err := registry.Default.Match(
		req.Name(), options.hintFor(desc.Ext), desc.Ext, nil, types.ModeWrite)
	if err != nil {
		req.Release(false)
		return nil, err
	}
	if format.NewEncoder == nil {
		req.Release(false)
		return nil, &ModeNotSupportedError{
			Format: format.Name, Resource: req.Name(), Mode: types.ModeWrite,
		}
	}

	enc, err := format.NewEncoder(req)
	if err != nil {
		req.Release(false)
		return nil, err
	}

	return &Writer{req: req, format: format, enc: enc}, nil
}

// Format returns the format serving this session.
func (w *Writer) Format() *Format { return w.format }

// Name returns the resolved resource identifier.
func (w *Writer) Name() string { return w.req.Name() }

// Count returns how many frames have been appended so far.
func (w *Writer) Count() int { return w.count }

// Append writes the next frame. meta may be nil; formats that require
// specific keys (image dimensions, for instance) reject frames missing
// them. Appending a second frame to a single-frame format fails.
func (w *Writer) Append(data []byte, meta Metadata) error {
	if w.closed {
		return &SessionClosedError{Op: "Append", Resource: w.req.Name()}
	}
	if w.count > 0 && !w.format.Caps.MultiFrame {
		// The caller's frame set cannot be represented, so the session
		// is failed as a whole and Close will discard the output.
		w.failed = true
		return fmt.Errorf("%s: format %s holds a single frame", w.req.Name(), w.format.Name)
	}

	if err := w.enc.Append(data, meta); err != nil {
		w.failed = true
		return err
	}
	w.count++
	return nil
}

// Close finishes the session. On the success path it flushes the
// encoder's trailer and commits the destination (renaming the temp file
// into place for local paths). If any Append failed, or the trailer
// flush fails, the partial output is discarded instead.
//
// Close is idempotent; after the first call every data operation fails
// with a SessionClosedError.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var encErr error
	if !w.failed {
		if encErr = w.enc.Close(); encErr != nil {
			w.failed = true
		}
	}
	return errors.Join(encErr, w.req.Release(!w.failed))
}
