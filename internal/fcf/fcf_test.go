package fcf

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mferrell/frameio/internal/registry"
	"github.com/mferrell/frameio/internal/types"
)

// memHandle is an in-memory types.Handle, enough for codec tests.
type memHandle struct {
	name string
	mode types.Mode
	data []byte
	buf  bytes.Buffer
}

func (h *memHandle) Name() string     { return h.name }
func (h *memHandle) Mode() types.Mode { return h.mode }

func (h *memHandle) Peek(n int) ([]byte, error) {
	if n > len(h.data) {
		n = len(h.data)
	}
	return h.data[:n], nil
}

func (h *memHandle) ReaderAt() (io.ReaderAt, int64, error) {
	return bytes.NewReader(h.data), int64(len(h.data)), nil
}

func (h *memHandle) Reader() (io.ReadSeeker, error) {
	return bytes.NewReader(h.data), nil
}

func (h *memHandle) Writer() (io.Writer, error) { return &h.buf, nil }

func (h *memHandle) LocalPath() (string, error) {
	return "", errors.New("not a local file")
}

func readHandle(data []byte) *memHandle {
	return &memHandle{name: "test.fcf", mode: types.ModeRead, data: data}
}

func encodeFrames(t *testing.T, frames []types.Frame) []byte {
	t.Helper()
	h := &memHandle{name: "test.fcf", mode: types.ModeWrite}
	enc, err := newEncoder(h)
	require.NoError(t, err)
	for _, fr := range frames {
		require.NoError(t, enc.Append(fr.Data, fr.Meta))
	}
	require.NoError(t, enc.Close())
	return h.buf.Bytes()
}

var sampleFrames = []types.Frame{
	{Data: []byte("first frame payload"), Meta: types.Metadata{"index": uint64(0), "label": "a"}},
	{Data: []byte{}, Meta: nil},
	{Data: bytes.Repeat([]byte{0xAB}, 300), Meta: types.Metadata{"label": "c"}},
}

func TestRoundTrip(t *testing.T) {
	raw := encodeFrames(t, sampleFrames)
	assert.True(t, bytes.HasPrefix(raw, []byte("FCF1")))
	assert.True(t, bytes.HasSuffix(raw, []byte("FCFX")))

	dec, err := newDecoder(readHandle(raw))
	require.NoError(t, err)
	defer dec.Close()

	require.Equal(t, len(sampleFrames), dec.Length())
	for i, want := range sampleFrames {
		data, meta, err := dec.Frame(i)
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, want.Data, data, "frame %d data", i)
		if want.Meta == nil {
			assert.Nil(t, meta, "frame %d meta", i)
		} else {
			for k := range want.Meta {
				assert.Contains(t, meta, k, "frame %d meta key", i)
			}
		}
	}
}

func TestRandomAccess(t *testing.T) {
	raw := encodeFrames(t, sampleFrames)
	dec, err := newDecoder(readHandle(raw))
	require.NoError(t, err)
	defer dec.Close()

	// Out of order and repeated reads both work on an indexed file.
	for _, i := range []int{2, 0, 2, 1, 0} {
		data, _, err := dec.Frame(i)
		require.NoError(t, err)
		assert.Equal(t, sampleFrames[i].Data, data)
	}

	_, _, err = dec.Frame(3)
	assert.Error(t, err)
	_, _, err = dec.Frame(-1)
	assert.Error(t, err)
}

func TestEmptyContainer(t *testing.T) {
	raw := encodeFrames(t, nil)
	dec, err := newDecoder(readHandle(raw))
	require.NoError(t, err)
	defer dec.Close()

	assert.Equal(t, 0, dec.Length())
	_, _, err = dec.Frame(0)
	assert.Error(t, err)
}

func TestTruncatedFileReadsSequentially(t *testing.T) {
	raw := encodeFrames(t, sampleFrames)

	// Chop off the index and trailer, keeping only header + records.
	// The index offset lives in the last 12 bytes.
	cut := len(raw) - (4 + 4 + len(sampleFrames)*8 + 12)
	dec, err := newDecoder(readHandle(raw[:cut]))
	require.NoError(t, err)
	defer dec.Close()

	assert.Equal(t, types.LengthUnknown, dec.Length())

	for i, want := range sampleFrames {
		data, _, err := dec.Frame(i)
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, want.Data, data)
	}
	_, _, err = dec.Frame(len(sampleFrames))
	assert.Equal(t, io.EOF, err)
}

func TestTruncatedFileRejectsOutOfOrder(t *testing.T) {
	raw := encodeFrames(t, sampleFrames)
	cut := len(raw) - (4 + 4 + len(sampleFrames)*8 + 12)
	dec, err := newDecoder(readHandle(raw[:cut]))
	require.NoError(t, err)
	defer dec.Close()

	_, _, err = dec.Frame(2)
	var seq *types.SequentialAccessError
	require.True(t, errors.As(err, &seq))
	assert.Equal(t, 2, seq.Index)
	assert.Equal(t, 0, seq.Next)
}

func TestNotAContainer(t *testing.T) {
	_, err := newDecoder(readHandle([]byte("GIF89a not ours")))
	assert.Error(t, err)

	_, err = newDecoder(readHandle([]byte("FC")))
	assert.Error(t, err)
}

func TestCorruptIndexFallsBackToSequential(t *testing.T) {
	raw := encodeFrames(t, sampleFrames)

	// Damage the trailer's index offset. The decoder must degrade to
	// sequential access instead of failing to open.
	bad := bytes.Clone(raw)
	copy(bad[len(bad)-12:], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	dec, err := newDecoder(readHandle(bad))
	require.NoError(t, err)
	defer dec.Close()
	assert.Equal(t, types.LengthUnknown, dec.Length())

	data, _, err := dec.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, sampleFrames[0].Data, data)
}

func TestCorruptRecord(t *testing.T) {
	raw := encodeFrames(t, sampleFrames)

	// Stomp the first record's magic.
	bad := bytes.Clone(raw)
	copy(bad[4:], "XXXX")

	dec, err := newDecoder(readHandle(bad))
	require.NoError(t, err)
	defer dec.Close()

	_, _, err = dec.Frame(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt frame record")
	assert.Contains(t, err.Error(), "test.fcf")
}

func TestMetadataRoundTrip(t *testing.T) {
	meta := types.Metadata{
		"width":  uint64(640),
		"height": uint64(480),
		"name":   "frame-0",
		"rate":   2.5,
	}
	raw := encodeFrames(t, []types.Frame{{Data: []byte("px"), Meta: meta}})

	dec, err := newDecoder(readHandle(raw))
	require.NoError(t, err)
	defer dec.Close()

	_, got, err := dec.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(640), got["width"])
	assert.Equal(t, uint64(480), got["height"])
	assert.Equal(t, "frame-0", got["name"])
	assert.Equal(t, 2.5, got["rate"])
}

func TestSniff(t *testing.T) {
	raw := encodeFrames(t, sampleFrames[:1])

	f := mustLookup(t)
	assert.True(t, f.Sniff(raw[:f.SniffLen]))
	assert.False(t, f.Sniff([]byte("P5 2 2 255")))
}

func mustLookup(t *testing.T) *types.Format {
	t.Helper()
	f := registry.Default.Lookup("FCF")
	require.NotNil(t, f, "FCF format not registered")
	return f
}
