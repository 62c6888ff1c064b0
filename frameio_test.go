package frameio

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrames(n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{
			Data: bytes.Repeat([]byte{byte(i + 1)}, 10+i),
			Meta: Metadata{"seq": uint64(i)},
		}
	}
	return frames
}

func encodeFCF(t *testing.T, frames []Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, frames, WithFormat("fcf")))
	return buf.Bytes()
}

func TestRoundTrip_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.fcf")
	want := testFrames(3)

	require.NoError(t, WriteAll(path, want))

	got, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Data, got[i].Data, "frame %d", i)
		assert.Equal(t, uint64(i), got[i].Meta["seq"], "frame %d", i)
	}
}

func TestReadAll_BytesSourceSniffed(t *testing.T) {
	// A []byte source has no extension; the FCF signature must carry
	// the match on its own.
	raw := encodeFCF(t, testFrames(2))

	frames, err := ReadAll(raw)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestReadFirst(t *testing.T) {
	want := testFrames(3)
	f, err := ReadFirst(encodeFCF(t, want))
	require.NoError(t, err)
	assert.Equal(t, want[0].Data, f.Data)

	_, err = ReadFirst(encodeFCF(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no frames")
}

func TestFormatHint(t *testing.T) {
	// Payload that no signature accepts, extension claimed by nothing:
	// only the hint can resolve it.
	path := filepath.Join(t.TempDir(), "dump.dat")
	require.NoError(t, os.WriteFile(path, []byte("opaque payload"), 0o644))

	_, err := ReadAll(path)
	var nm *NoMatchingFormatError
	require.True(t, errors.As(err, &nm))
	assert.True(t, errors.Is(err, ErrFormat))

	frames, err := ReadAll(path, WithFormat("raw"))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("opaque payload"), frames[0].Data)
}

func TestRemoteSource(t *testing.T) {
	raw := encodeFCF(t, testFrames(2))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(raw)
	}))
	defer srv.Close()

	frames, err := ReadAll(srv.URL + "/clip.fcf")
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestRemoteSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := ReadAll(srv.URL + "/clip.fcf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSource))
}

func TestArchiveMemberSource(t *testing.T) {
	raw := encodeFCF(t, testFrames(2))

	archive := filepath.Join(t.TempDir(), "bundle.zip")
	f, err := os.Create(archive)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	member, err := zw.Create("inner/clip.fcf")
	require.NoError(t, err)
	_, err = member.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	frames, err := ReadAll(archive + "/inner/clip.fcf")
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	_, err = ReadAll(archive + "/missing.fcf")
	assert.True(t, errors.Is(err, ErrSource))
}

func TestWriteAll_DiscardsOnFailure(t *testing.T) {
	// The second frame violates PGM's single-frame rule, so nothing may
	// appear at the destination path.
	path := filepath.Join(t.TempDir(), "out.pgm")
	frames := []Frame{
		{Data: []byte{1, 2}, Meta: Metadata{"width": 2, "height": 1}},
		{Data: []byte{3, 4}, Meta: Metadata{"width": 2, "height": 1}},
	}

	err := WriteAll(path, frames)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed write must not leave output behind")
}

func TestMaxBytesGuard(t *testing.T) {
	raw := encodeFCF(t, testFrames(4))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(raw)
	}))
	defer srv.Close()

	_, err := ReadAll(srv.URL+"/clip.fcf", WithMaxBytes(16))
	require.Error(t, err)
	var tl *TooLargeError
	require.True(t, errors.As(err, &tl))
	assert.True(t, errors.Is(err, ErrLimit))
	assert.Equal(t, int64(16), tl.Limit)
}

func TestOpenMany(t *testing.T) {
	dir := t.TempDir()
	var paths []any
	for i := range 4 {
		p := filepath.Join(dir, fmt.Sprintf("clip-%d.fcf", i))
		require.NoError(t, WriteAll(p, testFrames(i+1)))
		paths = append(paths, p)
	}

	readers, err := OpenMany(context.Background(), paths...)
	require.NoError(t, err)
	require.Len(t, readers, 4)
	for i, r := range readers {
		assert.Equal(t, i+1, r.Length(), "reader %d", i)
		require.NoError(t, r.Close())
	}
}

func TestOpenMany_FailureClosesAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.fcf")
	require.NoError(t, WriteAll(good, testFrames(1)))

	_, err := OpenMany(context.Background(), good, filepath.Join(dir, "absent.fcf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSource))
}

func TestOpenMany_Empty(t *testing.T) {
	readers, err := OpenMany(context.Background())
	require.NoError(t, err)
	assert.Nil(t, readers)
}

func TestRegisterFormat_Plugin(t *testing.T) {
	// A plugin format becomes reachable by its own extension.
	require.NoError(t, RegisterFormat(&Format{
		Name:       "upper",
		Extensions: []string{".up"},
		Caps:       Capabilities{Read: true},
		NewDecoder: func(h Handle) (Decoder, error) {
			return upperDecoder{h: h}, nil
		},
	}))

	path := filepath.Join(t.TempDir(), "shout.up")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	frames, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("HELLO"), frames[0].Data)

	// Names stay unique.
	err = RegisterFormat(&Format{Name: "UPPER"})
	var dup *DuplicateFormatError
	assert.True(t, errors.As(err, &dup))
}

type upperDecoder struct {
	h Handle
}

func (d upperDecoder) Length() int { return 1 }

func (d upperDecoder) Frame(index int) ([]byte, Metadata, error) {
	ra, size, err := d.h.ReaderAt()
	if err != nil {
		return nil, nil, err
	}
	buf := make([]byte, size)
	if n, err := ra.ReadAt(buf, 0); err != nil && (err != io.EOF || n < len(buf)) {
		return nil, nil, err
	}
	return bytes.ToUpper(buf), nil, nil
}

func (d upperDecoder) Close() error { return nil }

func TestFormatsIntrospection(t *testing.T) {
	names := map[string]bool{}
	for _, f := range Formats() {
		names[f.Name] = true
	}
	assert.True(t, names["FCF"])
	assert.True(t, names["PGM"])
	assert.True(t, names["RAW"])

	assert.NotNil(t, Lookup("fcf"))
	assert.Nil(t, Lookup("no-such-format"))
	assert.Contains(t, KnownExtensions(), ".fcf")
	assert.Contains(t, KnownExtensions(), ".pgm")
}
