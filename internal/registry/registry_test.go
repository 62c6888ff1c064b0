package registry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mferrell/frameio/internal/types"
)

func entry(name string, exts []string, magic string, caps types.Capabilities) *types.Format {
	f := &types.Format{
		Name:       name,
		Extensions: exts,
		Caps:       caps,
	}
	if magic != "" {
		f.Sniff = func(prefix []byte) bool {
			return bytes.HasPrefix(prefix, []byte(magic))
		}
		f.SniffLen = len(magic)
	}
	return f
}

var rw = types.Capabilities{Read: true, Write: true}

func staticPeek(data string) func(int) ([]byte, error) {
	return func(n int) ([]byte, error) {
		if n > len(data) {
			n = len(data)
		}
		return []byte(data[:n]), nil
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("PNG", []string{".png"}, "\x89PNG", rw)))

	err := r.Register(entry("png", nil, "", rw))
	var dup *types.DuplicateFormatError
	require.True(t, errors.As(err, &dup))
	assert.True(t, errors.Is(err, types.ErrFormat))
}

func TestRegister_RejectsEmptyName(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(&types.Format{}))
	assert.Error(t, r.Register(nil))
}

func TestLookup_CaseInsensitive(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("FCF", []string{".fcf"}, "FCF1", rw)))
	assert.NotNil(t, r.Lookup("fcf"))
	assert.NotNil(t, r.Lookup("FCF"))
	assert.Nil(t, r.Lookup("GIF"))
}

func TestMatch_ByExtension(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("PNG", []string{".png"}, "\x89PNG", rw)))
	require.NoError(t, r.Register(entry("GIF", []string{".gif"}, "GIF8", rw)))

	f, err := r.Match("photo.png", "", ".png", staticPeek(""), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "PNG", f.Name)

	// Extension match must not consult the sniffer at all, so a peek
	// that would fail is never invoked.
	f, err = r.Match("anim.gif", "", ".GIF", func(int) ([]byte, error) {
		t.Fatal("peek must not be called for a unique extension match")
		return nil, nil
	}, types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "GIF", f.Name)
}

func TestMatch_ByHint(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("PNG", []string{".png"}, "\x89PNG", rw)))
	require.NoError(t, r.Register(entry("RAW", []string{".raw"}, "", types.Capabilities{Read: true})))

	f, err := r.Match("whatever.bin", "raw", ".bin", staticPeek("junk"), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "RAW", f.Name)

	// Hinted format without the requested capability fails outright.
	_, err = r.Match("out.bin", "raw", ".bin", nil, types.ModeWrite)
	var mns *types.ModeNotSupportedError
	require.True(t, errors.As(err, &mns))
	assert.Equal(t, "RAW", mns.Format)

	// Unknown hint fails rather than falling back to detection.
	_, err = r.Match("photo.png", "jpeg", ".png", staticPeek("\x89PNG"), types.ModeRead)
	var nm *types.NoMatchingFormatError
	require.True(t, errors.As(err, &nm))
}

func TestMatch_SniffWhenNoExtension(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("PNG", []string{".png"}, "\x89PNG", rw)))
	require.NoError(t, r.Register(entry("GIF", []string{".gif"}, "GIF8", rw)))

	f, err := r.Match("<bytes>", "", "", staticPeek("GIF89a trailing"), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "GIF", f.Name)
}

func TestMatch_SniffWhenExtensionMisleads(t *testing.T) {
	// Extension claims nothing registered, content still resolves.
	r := New()
	require.NoError(t, r.Register(entry("GIF", []string{".gif"}, "GIF8", rw)))

	f, err := r.Match("frame.dat", "", ".dat", staticPeek("GIF89a"), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "GIF", f.Name)
}

func TestMatch_SharedExtensionResolvedBySniff(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("TIFF-LE", []string{".tif"}, "II*\x00", rw)))
	require.NoError(t, r.Register(entry("TIFF-BE", []string{".tif"}, "MM\x00*", rw)))

	f, err := r.Match("scan.tif", "", ".tif", staticPeek("MM\x00*rest"), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "TIFF-BE", f.Name)
}

func TestMatch_TieBreakLastRegisteredWins(t *testing.T) {
	// Both entries share the extension and both sniffs accept: the
	// later registration shadows the earlier one.
	r := New()
	require.NoError(t, r.Register(entry("FCF", []string{".fcf"}, "FCF1", rw)))
	require.NoError(t, r.Register(entry("FCF-NG", []string{".fcf"}, "FCF1", rw)))

	f, err := r.Match("clip.fcf", "", ".fcf", staticPeek("FCF1data"), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "FCF-NG", f.Name)
}

func TestMatch_NoMatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("PNG", []string{".png"}, "\x89PNG", rw)))

	_, err := r.Match("mystery.xyz", "", ".xyz", staticPeek("nothing here"), types.ModeRead)
	var nm *types.NoMatchingFormatError
	require.True(t, errors.As(err, &nm))
	assert.Equal(t, ".xyz", nm.Ext)
	assert.Contains(t, err.Error(), "mystery.xyz")
}

func TestMatch_WriteMode(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("RO", []string{".ro"}, "RO", types.Capabilities{Read: true})))
	require.NoError(t, r.Register(entry("FCF", []string{".fcf"}, "FCF1", rw)))

	f, err := r.Match("out.fcf", "", ".fcf", nil, types.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, "FCF", f.Name)

	// A read-only format is invisible to write-mode matching.
	_, err = r.Match("out.ro", "", ".ro", nil, types.ModeWrite)
	var nm *types.NoMatchingFormatError
	require.True(t, errors.As(err, &nm))

	// Ambiguous write-mode extension: last registered wins.
	require.NoError(t, r.Register(entry("FCF2", []string{".fcf"}, "FCF2", rw)))
	f, err = r.Match("out.fcf", "", ".fcf", nil, types.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, "FCF2", f.Name)
}

func TestMatch_PeekErrorPropagates(t *testing.T) {
	// A failing peek is a resource problem and must surface as such,
	// not as a detection miss.
	r := New()
	require.NoError(t, r.Register(entry("PNG", []string{".png"}, "\x89PNG", rw)))

	boom := errors.New("connection reset")
	_, err := r.Match("<stream>", "", "", func(int) ([]byte, error) {
		return nil, boom
	}, types.ModeRead)
	assert.ErrorIs(t, err, boom)
}

func TestMatch_SniffOnlyFormat(t *testing.T) {
	// No extensions at all: reachable purely by content.
	r := New()
	require.NoError(t, r.Register(entry("MAGIC", nil, "MGK\x00", types.Capabilities{Read: true})))

	f, err := r.Match("<stream>", "", "", staticPeek("MGK\x00payload"), types.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "MAGIC", f.Name)
}

func TestFormatsAndExtensions(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(entry("B", []string{".b"}, "", rw)))
	require.NoError(t, r.Register(entry("A", []string{".a", "A2"}, "", rw)))

	names := []string{}
	for _, f := range r.Formats() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"B", "A"}, names, "registration order is preserved")

	assert.Equal(t, []string{".a", ".a2", ".b"}, r.KnownExtensions())
}
