// Package resource normalizes caller-supplied sources and destinations
// into canonical descriptors. The descriptor is an explicit tagged union
// over source kinds; every later stage switches on Kind instead of
// re-inspecting the original input.
package resource

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mferrell/frameio/internal/types"
)

// Kind identifies the shape of a normalized source or destination.
type Kind int

const (
	// KindLocalFile is a path on the local filesystem.
	KindLocalFile Kind = iota
	// KindRemoteURL is an http, https, or ftp URL.
	KindRemoteURL
	// KindArchiveMember is a path inside a local zip or tar archive,
	// written as /path/to/bundle.zip/inner/member.
	KindArchiveMember
	// KindBytes is an in-memory byte buffer.
	KindBytes
	// KindHandle is an already-open stream supplied by the caller.
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindLocalFile:
		return "local file"
	case KindRemoteURL:
		return "remote URL"
	case KindArchiveMember:
		return "archive member"
	case KindBytes:
		return "byte buffer"
	case KindHandle:
		return "open handle"
	default:
		return "unknown"
	}
}

// Descriptor is the canonical form of a source or destination. It is
// immutable once constructed; only the field group for its Kind is set.
type Descriptor struct {
	Kind Kind
	Mode types.Mode

	// KindLocalFile
	Path string

	// KindRemoteURL
	URL string

	// KindArchiveMember
	Archive string // path of the containing archive
	Member  string // slash-separated path inside the archive

	// KindBytes
	Bytes  []byte        // read source
	Buffer *bytes.Buffer // write destination

	// KindHandle
	Handle any

	// Ext is the extension inferred from the trailing path segment,
	// lowercase with a leading dot. Empty when none could be inferred.
	Ext string
}

// Name returns an identifier for the resource used in error messages
// and logs.
func (d *Descriptor) Name() string {
	switch d.Kind {
	case KindLocalFile:
		return d.Path
	case KindRemoteURL:
		return d.URL
	case KindArchiveMember:
		return d.Archive + "/" + d.Member
	case KindBytes:
		return "<bytes>"
	case KindHandle:
		return "<stream>"
	default:
		return "<unknown>"
	}
}

// archiveExts are the archive container extensions recognized in
// path-within-archive notation, longest first so ".tar.gz" wins over ".gz".
var archiveExts = []string{".tar.gz", ".tgz", ".tar", ".zip"}

// SplitArchivePath splits a path-within-archive into container and member.
// ok is false when the path carries no archive marker.
func SplitArchivePath(p string) (archive, member string, ok bool) {
	slashed := filepath.ToSlash(p)
	for _, ext := range archiveExts {
		marker := ext + "/"
		if i := indexFold(slashed, marker); i >= 0 {
			cut := i + len(ext)
			return p[:cut], strings.TrimPrefix(slashed[cut:], "/"), true
		}
	}
	return "", "", false
}

// indexFold is a case-insensitive strings.Index reporting byte offsets
// in s itself. Lowercasing the whole path first would shift offsets when
// an earlier segment holds a rune whose lowercase form has a different
// byte length.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// Normalize parses input into a canonical Descriptor for the given mode.
//
// Recognized shapes: string paths (with ~ expansion), http/https/ftp URL
// strings, path-within-archive strings, []byte and *bytes.Buffer, and
// already-open streams (io.Reader / io.ReaderAt / io.ReadSeeker for read,
// io.Writer for write).
func Normalize(input any, mode types.Mode) (*Descriptor, error) {
	switch v := input.(type) {
	case string:
		return normalizeString(v, mode)

	case []byte:
		if mode != types.ModeRead {
			return nil, &types.NotWritableError{
				Resource: "<bytes>",
				Reason:   "cannot write into a []byte; pass a *bytes.Buffer",
			}
		}
		return &Descriptor{Kind: KindBytes, Mode: mode, Bytes: v}, nil

	case *bytes.Buffer:
		d := &Descriptor{Kind: KindBytes, Mode: mode, Buffer: v}
		if mode == types.ModeRead {
			d.Bytes = v.Bytes()
		}
		return d, nil

	case *os.File:
		// An open file still has a name, so the extension survives.
		d := &Descriptor{Kind: KindHandle, Mode: mode, Handle: v}
		d.Ext = inferExt(v.Name())
		return d, nil
	}

	// Remaining stream shapes, checked after the concrete types above.
	if mode == types.ModeRead {
		switch input.(type) {
		case io.ReadSeeker, io.ReaderAt, io.Reader:
			return &Descriptor{Kind: KindHandle, Mode: mode, Handle: input}, nil
		}
	} else {
		if _, ok := input.(io.Writer); ok {
			return &Descriptor{Kind: KindHandle, Mode: mode, Handle: input}, nil
		}
	}

	return nil, &types.UnrecognizedSourceError{
		Input: fmt.Sprintf("%T", input),
		Mode:  mode,
	}
}

func normalizeString(s string, mode types.Mode) (*Descriptor, error) {
	if s == "" {
		return nil, &types.UnrecognizedSourceError{Input: "empty string", Mode: mode}
	}

	if u, ok := parseRemoteURL(s); ok {
		if mode != types.ModeRead {
			return nil, &types.NotWritableError{
				Resource: s,
				Reason:   "remote destinations are not supported",
			}
		}
		return &Descriptor{
			Kind: KindRemoteURL,
			Mode: mode,
			URL:  s,
			Ext:  inferExt(u.Path),
		}, nil
	}

	p, err := expandUser(s)
	if err != nil {
		return nil, &types.SourceUnreachableError{Resource: s, Reason: "cannot expand ~", Err: err}
	}

	if archive, member, ok := SplitArchivePath(p); ok {
		if mode != types.ModeRead {
			return nil, &types.NotWritableError{
				Resource: p,
				Reason:   "archive members are read-only",
			}
		}
		if member == "" {
			return nil, &types.UnrecognizedSourceError{
				Input: fmt.Sprintf("archive path %q without member", p),
				Mode:  mode,
			}
		}
		return &Descriptor{
			Kind:    KindArchiveMember,
			Mode:    mode,
			Archive: archive,
			Member:  member,
			Ext:     inferExt(member),
		}, nil
	}

	return &Descriptor{
		Kind: KindLocalFile,
		Mode: mode,
		Path: filepath.Clean(p),
		Ext:  inferExt(p),
	}, nil
}

// parseRemoteURL reports whether s is a URL with a supported remote
// scheme. Single-letter schemes are rejected so Windows drive paths like
// C:\clips\a.fcf do not parse as URLs.
func parseRemoteURL(s string) (*url.URL, bool) {
	i := strings.Index(s, "://")
	if i < 2 {
		return nil, false
	}
	switch strings.ToLower(s[:i]) {
	case "http", "https", "ftp":
	default:
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	return u, true
}

func expandUser(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

// inferExt returns the lowercase trailing extension of p, or "" when the
// last segment has none.
func inferExt(p string) string {
	ext := path.Ext(path.Base(filepath.ToSlash(p)))
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(ext)
}
