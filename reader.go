package frameio

import (
	"errors"
	"iter"

	"github.com/mferrell/frameio/internal/registry"
	"github.com/mferrell/frameio/internal/request"
	"github.com/mferrell/frameio/internal/resource"
	"github.com/mferrell/frameio/internal/types"
)

// Reader is an open read session: one source, one format, one decoder.
//
// A Reader is created by GetReader, which resolves the source and picks
// the format, and must be closed to release whatever the session
// materialized (temp files, open handles):
//
//	r, err := frameio.GetReader("clip.fcf")
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//
// A Reader is not safe for concurrent use.
type Reader struct {
	req    *request.Request
	format *Format
	dec    types.Decoder

	next   int // next index a sequential-only session will accept
	closed bool
}

// GetReader resolves a source, selects a format, and opens a read
// session on it.
//
// source accepts the shapes listed in the package documentation: local
// paths, URLs, archive member paths, []byte, *bytes.Buffer, *os.File,
// and plain io.Reader/io.ReaderAt values.
//
// Format selection tries an explicit WithFormat hint first, then a
// unique extension match, then content signatures. Failures classify
// under ErrSource (resource unreachable) or ErrFormat (nothing
// matched).
func GetReader(source any, opts ...Option) (*Reader, error) {
	options := defaultSessionOptions()
	for _, opt := range opts {
		opt(options)
	}

	desc, err := resource.Normalize(source, types.ModeRead)
	if err != nil {
		return nil, err
	}
	req := request.New(desc, options.requestConfig())

	format, err := registry.Default.Match(
		req.Name(), options.hintFor(desc.Ext), desc.Ext, req.Peek, types.ModeRead)
	if err != nil {
		req.Release(false)
		return nil, err
	}
	if format.NewDecoder == nil {
		req.Release(false)
		return nil, &ModeNotSupportedError{
			Format: format.Name, Resource: req.Name(), Mode: types.ModeRead,
		}
	}

	dec, err := format.NewDecoder(req)
	if err != nil {
		req.Release(false)
		return nil, err
	}

	return &Reader{req: req, format: format, dec: dec}, nil
}

// Format returns the format serving this session.
func (r *Reader) Format() *Format { return r.format }

// Name returns the resolved resource identifier.
func (r *Reader) Name() string { return r.req.Name() }

// Length returns the number of frames, or LengthUnknown for streaming
// sources whose count is only discovered by reading to the end.
func (r *Reader) Length() int {
	if r.closed {
		return LengthUnknown
	}
	return r.dec.Length()
}

// Frame returns the data and metadata of the frame at index.
//
// When the format supports random access and the length is known,
// indices may arrive in any order and repeat. Otherwise indices must be
// strictly increasing from zero; anything else fails with a
// SequentialAccessError. Reading past the end of an unknown-length
// source returns io.EOF.
func (r *Reader) Frame(index int) ([]byte, Metadata, error) {
	if r.closed {
		return nil, nil, &SessionClosedError{Op: "Frame", Resource: r.req.Name()}
	}

	if !r.randomAccess() && index != r.next {
		return nil, nil, &SequentialAccessError{
			Format: r.format.Name, Index: index, Next: r.next,
		}
	}

	data, meta, err := r.dec.Frame(index)
	if err != nil {
		return nil, nil, err
	}
	if index == r.next {
		r.next++
	}
	return data, meta, nil
}

// randomAccess reports whether out-of-order indices are allowed: the
// format must declare the capability and the length must be known.
func (r *Reader) randomAccess() bool {
	return r.format.Caps.RandomAccess && r.dec.Length() != LengthUnknown
}

// Frames iterates lazily over the remaining frames in order.
//
// Iteration stops at the end of the source or at the first failing
// frame; to distinguish the two, call Frame directly and inspect the
// error.
//
//	for i, frame := range r.Frames() {
//	    process(i, frame.Data, frame.Meta)
//	}
func (r *Reader) Frames() iter.Seq2[int, Frame] {
	return func(yield func(int, Frame) bool) {
		n := r.Length()
		for i := r.next; n == LengthUnknown || i < n; i++ {
			data, meta, err := r.Frame(i)
			if err != nil {
				return
			}
			if !yield(i, Frame{Data: data, Meta: meta}) {
				return
			}
		}
	}
}

// Close ends the session and releases everything it acquired: the
// decoder, any downloaded or extracted temp copy, and any handle the
// session opened. Close is idempotent; after the first call every data
// operation fails with a SessionClosedError.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(r.dec.Close(), r.req.Release(false))
}
