// Package fcf implements the FCF frame container, the native multi-frame
// format. An FCF resource is a flat sequence of self-delimiting frame
// records followed by an offset index and a fixed-size trailer, so a
// finished file supports counted random access while a truncated or
// still-streaming one can still be read sequentially.
//
// Layout, all integers big-endian:
//
//	"FCF1"
//	per frame: "FRME" | u32 metaLen | CBOR metadata | u64 dataLen | data
//	"INDX" | u32 count | count x u64 record offset
//	u64 index offset | "FCFX"
//
// Frame metadata is CBOR (github.com/fxamacker/cbor); frameio does not
// interpret the keys.
package fcf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/mferrell/frameio/internal/binary"
	"github.com/mferrell/frameio/internal/registry"
	"github.com/mferrell/frameio/internal/types"
)

const (
	headerMagic  = "FCF1"
	recordMagic  = "FRME"
	indexMagic   = "INDX"
	trailerMagic = "FCFX"

	headerLen  = 4
	trailerLen = 8 + 4 // index offset + magic
)

// maxMetaLen bounds a single frame's metadata block; anything larger is
// treated as corruption rather than allocated.
const maxMetaLen = 16 << 20

func init() {
	err := registry.Default.Register(&types.Format{
		Name:        "FCF",
		Description: "frameio frame container",
		Extensions:  []string{".fcf"},
		Caps: types.Capabilities{
			Read:         true,
			Write:        true,
			MultiFrame:   true,
			RandomAccess: true,
		},
		Sniff: func(prefix []byte) bool {
			return bytes.HasPrefix(prefix, []byte(headerMagic))
		},
		SniffLen:   len(headerMagic),
		NewDecoder: newDecoder,
		NewEncoder: newEncoder,
	})
	if err != nil {
		panic(err)
	}
}

type decoder struct {
	sr      *binary.SafeReader
	name    string
	offsets []int64 // record offsets from the index, nil when absent

	// Sequential cursor for index-less resources.
	seq       int
	seqOffset int64
}

func newDecoder(h types.Handle) (types.Decoder, error) {
	ra, size, err := h.ReaderAt()
	if err != nil {
		return nil, err
	}
	sr := binary.NewSafeReader(ra, size, h.Name())

	r := binary.NewReader(sr, 0)
	magic, err := r.ReadString(len(headerMagic), "container magic")
	if err != nil {
		return nil, err
	}
	if magic != headerMagic {
		return nil, fmt.Errorf("%s: not an FCF container", h.Name())
	}

	d := &decoder{sr: sr, name: h.Name(), seqOffset: headerLen}
	d.offsets = loadIndex(sr)
	return d, nil
}

// loadIndex reads the trailer and offset index. It returns nil for any
// resource without a valid trailer: such files are readable, just
// sequentially and with an unknown length.
func loadIndex(sr *binary.SafeReader) []int64 {
	size := sr.Size()
	if size < headerLen+trailerLen {
		return nil
	}

	r := binary.NewReader(sr, size-trailerLen)
	cr := binary.NewChainReader(r)
	indexOff := binary.ReadChained[uint64](cr, "index offset")
	magic := cr.String(len(trailerMagic), "trailer magic")
	if cr.Error() != nil || magic != trailerMagic {
		return nil
	}
	if indexOff < headerLen || int64(indexOff) >= size-trailerLen {
		return nil
	}

	ir := binary.NewReader(sr, int64(indexOff))
	icr := binary.NewChainReader(ir)
	if icr.String(len(indexMagic), "index magic") != indexMagic {
		return nil
	}
	count := binary.ReadChained[uint32](icr, "frame count")
	if icr.Error() != nil {
		return nil
	}
	// The index must fit exactly between its magic and the trailer.
	if int64(indexOff)+4+4+int64(count)*8 != size-trailerLen {
		return nil
	}

	offsets := make([]int64, count)
	for i := range offsets {
		off := binary.ReadChained[uint64](icr, "record offset")
		if int64(off) < headerLen || int64(off) >= int64(indexOff) {
			return nil
		}
		offsets[i] = int64(off)
	}
	if icr.Error() != nil {
		return nil
	}
	return offsets
}

func (d *decoder) Length() int {
	if d.offsets == nil {
		return types.LengthUnknown
	}
	return len(d.offsets)
}

func (d *decoder) Frame(index int) ([]byte, types.Metadata, error) {
	if d.offsets != nil {
		if index < 0 || index >= len(d.offsets) {
			return nil, nil, fmt.Errorf("%s: frame %d out of range [0,%d)",
				d.name, index, len(d.offsets))
		}
		data, meta, _, err := d.readRecord(d.offsets[index])
		return data, meta, err
	}

	// Index-less: strictly sequential.
	if index != d.seq {
		return nil, nil, &types.SequentialAccessError{Format: "FCF", Index: index, Next: d.seq}
	}
	if d.seqOffset >= d.sr.Size() {
		return nil, nil, io.EOF
	}
	data, meta, next, err := d.readRecord(d.seqOffset)
	if err == io.EOF {
		return nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, err
	}
	d.seq++
	d.seqOffset = next
	return data, meta, nil
}

// readRecord parses one frame record at off. It returns io.EOF when off
// points at the index or trailer instead of a record.
func (d *decoder) readRecord(off int64) ([]byte, types.Metadata, int64, error) {
	r := binary.NewReader(d.sr, off)
	cr := binary.NewChainReader(r)

	magic := cr.String(len(recordMagic), "record magic")
	if cr.Error() == nil && magic == indexMagic {
		return nil, nil, 0, io.EOF
	}
	metaLen := binary.ReadChained[uint32](cr, "metadata length")
	if cr.Error() != nil {
		return nil, nil, 0, fmt.Errorf("%s: corrupt frame record at offset %d: %w",
			d.name, off, cr.Error())
	}
	if magic != recordMagic {
		return nil, nil, 0, fmt.Errorf("%s: corrupt frame record at offset %d: bad record magic %q",
			d.name, off, magic)
	}
	if metaLen > maxMetaLen {
		return nil, nil, 0, fmt.Errorf("%s: corrupt frame record at offset %d: metadata length %d",
			d.name, off, metaLen)
	}

	metaRaw := cr.Bytes(int(metaLen), "frame metadata")
	dataLen := binary.ReadChained[uint64](cr, "data length")
	if cr.Error() != nil {
		return nil, nil, 0, fmt.Errorf("%s: corrupt frame record at offset %d: %w",
			d.name, off, cr.Error())
	}
	if int64(dataLen) < 0 || r.Offset()+int64(dataLen) > d.sr.Size() {
		return nil, nil, 0, fmt.Errorf("%s: corrupt frame record at offset %d: data length %d exceeds resource",
			d.name, off, dataLen)
	}
	data, err := r.ReadBytes(int(dataLen), "frame data")
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%s: corrupt frame record at offset %d: %w", d.name, off, err)
	}

	var meta types.Metadata
	if metaLen > 0 {
		if err := cbor.Unmarshal(metaRaw, &meta); err != nil {
			return nil, nil, 0, fmt.Errorf("%s: corrupt frame metadata at offset %d: %w",
				d.name, off, err)
		}
	}
	return data, meta, r.Offset(), nil
}

func (d *decoder) Close() error {
	d.offsets = nil
	return nil
}

type encoder struct {
	sw      *binary.SafeWriter
	name    string
	offsets []uint64
}

func newEncoder(h types.Handle) (types.Encoder, error) {
	w, err := h.Writer()
	if err != nil {
		return nil, err
	}
	sw := binary.NewSafeWriter(w)
	if err := sw.WriteString(headerMagic); err != nil {
		return nil, fmt.Errorf("%s: write container header: %w", h.Name(), err)
	}
	return &encoder{sw: sw, name: h.Name()}, nil
}

func (e *encoder) Append(data []byte, meta types.Metadata) error {
	var metaRaw []byte
	if len(meta) > 0 {
		var err error
		metaRaw, err = cbor.Marshal(meta)
		if err != nil {
			return fmt.Errorf("%s: encode frame metadata: %w", e.name, err)
		}
	}

	off := uint64(e.sw.Offset())
	if err := e.sw.WriteString(recordMagic); err != nil {
		return fmt.Errorf("%s: write frame record: %w", e.name, err)
	}
	if err := binary.Write(e.sw, uint32(len(metaRaw))); err != nil {
		return fmt.Errorf("%s: write frame record: %w", e.name, err)
	}
	if err := e.sw.WriteBytes(metaRaw); err != nil {
		return fmt.Errorf("%s: write frame record: %w", e.name, err)
	}
	if err := binary.Write(e.sw, uint64(len(data))); err != nil {
		return fmt.Errorf("%s: write frame record: %w", e.name, err)
	}
	if err := e.sw.WriteBytes(data); err != nil {
		return fmt.Errorf("%s: write frame record: %w", e.name, err)
	}
	e.offsets = append(e.offsets, off)
	return nil
}

// Close appends the offset index and trailer. The frame count lives
// here because it is only known once writing is complete.
func (e *encoder) Close() error {
	indexOff := uint64(e.sw.Offset())
	if err := e.sw.WriteString(indexMagic); err != nil {
		return fmt.Errorf("%s: write index: %w", e.name, err)
	}
	if err := binary.Write(e.sw, uint32(len(e.offsets))); err != nil {
		return fmt.Errorf("%s: write index: %w", e.name, err)
	}
	for _, off := range e.offsets {
		if err := binary.Write(e.sw, off); err != nil {
			return fmt.Errorf("%s: write index: %w", e.name, err)
		}
	}
	if err := binary.Write(e.sw, indexOff); err != nil {
		return fmt.Errorf("%s: write trailer: %w", e.name, err)
	}
	if err := e.sw.WriteString(trailerMagic); err != nil {
		return fmt.Errorf("%s: write trailer: %w", e.name, err)
	}
	return nil
}
