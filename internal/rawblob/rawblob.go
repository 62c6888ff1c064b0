// Package rawblob treats an entire resource as one opaque frame. It has
// no signature, so it is reachable only by extension or explicit format
// hint, and it attaches no metadata.
package rawblob

import (
	"fmt"
	"io"

	"github.com/mferrell/frameio/internal/registry"
	"github.com/mferrell/frameio/internal/types"
)

func init() {
	err := registry.Default.Register(&types.Format{
		Name:        "RAW",
		Description: "opaque byte blob, one frame per resource",
		Extensions:  []string{".raw", ".bin"},
		Caps: types.Capabilities{
			Read:  true,
			Write: true,
		},
		NewDecoder: newDecoder,
		NewEncoder: newEncoder,
	})
	if err != nil {
		panic(err)
	}
}

type decoder struct {
	h types.Handle
}

func newDecoder(h types.Handle) (types.Decoder, error) {
	return &decoder{h: h}, nil
}

func (d *decoder) Length() int { return 1 }

func (d *decoder) Frame(index int) ([]byte, types.Metadata, error) {
	if index != 0 {
		return nil, nil, fmt.Errorf("%s: frame %d out of range: raw blob holds a single frame",
			d.h.Name(), index)
	}
	ra, size, err := d.h.ReaderAt()
	if err != nil {
		return nil, nil, err
	}
	data := make([]byte, size)
	if size > 0 {
		// A read ending exactly at EOF may report io.EOF alongside a
		// full buffer.
		if n, err := ra.ReadAt(data, 0); err != nil && (err != io.EOF || n < len(data)) {
			return nil, nil, fmt.Errorf("%s: read blob: %w", d.h.Name(), err)
		}
	}
	return data, nil, nil
}

func (d *decoder) Close() error { return nil }

type encoder struct {
	h       types.Handle
	written bool
}

func newEncoder(h types.Handle) (types.Encoder, error) {
	return &encoder{h: h}, nil
}

func (e *encoder) Append(data []byte, meta types.Metadata) error {
	if e.written {
		return fmt.Errorf("%s: raw blob holds a single frame", e.h.Name())
	}
	w, err := e.h.Writer()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%s: write blob: %w", e.h.Name(), err)
	}
	e.written = true
	return nil
}

func (e *encoder) Close() error { return nil }
