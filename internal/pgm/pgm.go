// Package pgm implements the binary PGM (P5) grayscale image format, a
// single-frame format used to demonstrate interop with an external,
// pre-existing file type. Only the binary "P5" variant is supported;
// plain-text "P2" is not.
package pgm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mferrell/frameio/internal/registry"
	"github.com/mferrell/frameio/internal/types"
)

// Metadata keys attached to decoded frames and honored on encode.
const (
	KeyWidth  = "width"
	KeyHeight = "height"
	KeyMaxVal = "maxval"
)

const maxDim = 1 << 20

func init() {
	err := registry.Default.Register(&types.Format{
		Name:        "PGM",
		Description: "netpbm binary grayscale image",
		Extensions:  []string{".pgm"},
		Caps: types.Capabilities{
			Read:  true,
			Write: true,
		},
		Sniff: func(prefix []byte) bool {
			return len(prefix) >= 3 && prefix[0] == 'P' && prefix[1] == '5' &&
				isSpace(prefix[2])
		},
		SniffLen:   3,
		NewDecoder: newDecoder,
		NewEncoder: newEncoder,
	})
	if err != nil {
		panic(err)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

type decoder struct {
	name string
	data []byte
	meta types.Metadata
}

func newDecoder(h types.Handle) (types.Decoder, error) {
	ra, size, err := h.ReaderAt()
	if err != nil {
		return nil, err
	}
	raw := make([]byte, size)
	if size > 0 {
		// A read ending exactly at EOF may report io.EOF alongside a
		// full buffer.
		if n, err := ra.ReadAt(raw, 0); err != nil && (err != io.EOF || n < len(raw)) {
			return nil, fmt.Errorf("%s: read image: %w", h.Name(), err)
		}
	}

	p := &parser{name: h.Name(), raw: raw}
	if err := p.header(); err != nil {
		return nil, err
	}

	sampleBytes := 1
	if p.maxVal > 255 {
		sampleBytes = 2
	}
	want := p.width * p.height * sampleBytes
	if len(raw)-p.pos < want {
		return nil, fmt.Errorf("%s: truncated raster: have %d bytes, need %d",
			h.Name(), len(raw)-p.pos, want)
	}

	return &decoder{
		name: h.Name(),
		data: raw[p.pos : p.pos+want],
		meta: types.Metadata{
			KeyWidth:  p.width,
			KeyHeight: p.height,
			KeyMaxVal: p.maxVal,
		},
	}, nil
}

func (d *decoder) Length() int { return 1 }

func (d *decoder) Frame(index int) ([]byte, types.Metadata, error) {
	if index != 0 {
		return nil, nil, fmt.Errorf("%s: frame %d out of range: PGM holds a single frame",
			d.name, index)
	}
	return d.data, d.meta, nil
}

func (d *decoder) Close() error {
	d.data = nil
	return nil
}

// parser walks the whitespace-and-comment separated header tokens.
type parser struct {
	name   string
	raw    []byte
	pos    int
	width  int
	height int
	maxVal int
}

func (p *parser) header() error {
	if len(p.raw) < 2 || p.raw[0] != 'P' || p.raw[1] != '5' {
		return fmt.Errorf("%s: not a binary PGM image", p.name)
	}
	p.pos = 2

	var err error
	if p.width, err = p.intToken("width"); err != nil {
		return err
	}
	if p.height, err = p.intToken("height"); err != nil {
		return err
	}
	if p.maxVal, err = p.intToken("maxval"); err != nil {
		return err
	}

	if p.width <= 0 || p.width > maxDim || p.height <= 0 || p.height > maxDim {
		return fmt.Errorf("%s: bad dimensions %dx%d", p.name, p.width, p.height)
	}
	if p.maxVal <= 0 || p.maxVal > 65535 {
		return fmt.Errorf("%s: bad maxval %d", p.name, p.maxVal)
	}

	// Exactly one whitespace byte separates the header from the raster.
	if p.pos >= len(p.raw) || !isSpace(p.raw[p.pos]) {
		return fmt.Errorf("%s: malformed header", p.name)
	}
	p.pos++
	return nil
}

// intToken skips whitespace and '#' comments, then reads a decimal token.
func (p *parser) intToken(what string) (int, error) {
	for p.pos < len(p.raw) {
		c := p.raw[p.pos]
		if isSpace(c) {
			p.pos++
			continue
		}
		if c == '#' {
			for p.pos < len(p.raw) && p.raw[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}

	start := p.pos
	for p.pos < len(p.raw) && p.raw[p.pos] >= '0' && p.raw[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("%s: malformed header: missing %s", p.name, what)
	}

	n := 0
	for _, c := range p.raw[start:p.pos] {
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return 0, fmt.Errorf("%s: malformed header: %s too large", p.name, what)
		}
	}
	return n, nil
}

type encoder struct {
	h       types.Handle
	written bool
}

func newEncoder(h types.Handle) (types.Encoder, error) {
	return &encoder{h: h}, nil
}

// Append writes the single image. Width and height are required metadata;
// maxval defaults to 255.
func (e *encoder) Append(data []byte, meta types.Metadata) error {
	if e.written {
		return fmt.Errorf("%s: PGM holds a single frame", e.h.Name())
	}

	width, err := metaInt(meta, KeyWidth)
	if err != nil {
		return fmt.Errorf("%s: %w", e.h.Name(), err)
	}
	height, err := metaInt(meta, KeyHeight)
	if err != nil {
		return fmt.Errorf("%s: %w", e.h.Name(), err)
	}
	maxVal := 255
	if _, ok := meta[KeyMaxVal]; ok {
		if maxVal, err = metaInt(meta, KeyMaxVal); err != nil {
			return fmt.Errorf("%s: %w", e.h.Name(), err)
		}
	}

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%s: bad dimensions %dx%d", e.h.Name(), width, height)
	}
	if maxVal <= 0 || maxVal > 65535 {
		return fmt.Errorf("%s: bad maxval %d", e.h.Name(), maxVal)
	}
	sampleBytes := 1
	if maxVal > 255 {
		sampleBytes = 2
	}
	if len(data) != width*height*sampleBytes {
		return fmt.Errorf("%s: raster is %d bytes, %dx%d at maxval %d needs %d",
			e.h.Name(), len(data), width, height, maxVal, width*height*sampleBytes)
	}

	w, err := e.h.Writer()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P5\n%d %d\n%d\n", width, height, maxVal)
	buf.Write(data)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%s: write image: %w", e.h.Name(), err)
	}
	e.written = true
	return nil
}

func (e *encoder) Close() error {
	if !e.written {
		return fmt.Errorf("%s: no frame written", e.h.Name())
	}
	return nil
}

// metaInt accepts the integer shapes a Metadata value may arrive in,
// including the uint64 that CBOR round-trips produce.
func metaInt(meta types.Metadata, key string) (int, error) {
	v, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("metadata key %q is required", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("metadata key %q has non-integer value %T", key, v)
	}
}
