package request

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// openArchiveMember returns a sequential stream over one member of a
// local zip or tar archive. Member paths are slash-separated and matched
// after cleaning, so "./frames/a.pgm" and "frames/a.pgm" are the same
// entry.
func openArchiveMember(archive, member string) (io.ReadCloser, error) {
	want := path.Clean(member)
	lower := strings.ToLower(archive)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return openZipMember(archive, want)
	case strings.HasSuffix(lower, ".tar"):
		return openTarMember(archive, want, false)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return openTarMember(archive, want, true)
	default:
		return nil, fmt.Errorf("unsupported archive type %q", path.Ext(archive))
	}
}

func openZipMember(archive, member string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if path.Clean(f.Name) != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, err
		}
		return &memberStream{ReadCloser: rc, container: zr}, nil
	}

	zr.Close()
	return nil, fmt.Errorf("member %q not found in archive", member)
}

func openTarMember(archive, member string, gzipped bool) (io.ReadCloser, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, err
	}

	var src io.Reader = f
	var gz *gzip.Reader
	if gzipped {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		src = gz
	}

	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			closeAll(gz, f)
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg || path.Clean(hdr.Name) != member {
			continue
		}
		container := multiCloser{f}
		if gz != nil {
			container = multiCloser{gz, f}
		}
		return &memberStream{ReadCloser: io.NopCloser(tr), container: container}, nil
	}

	closeAll(gz, f)
	return nil, fmt.Errorf("member %q not found in archive", member)
}

// memberStream couples a member's stream with the archive handles that
// must outlive it.
type memberStream struct {
	io.ReadCloser
	container io.Closer
}

func (m *memberStream) Close() error {
	err := m.ReadCloser.Close()
	if cerr := m.container.Close(); err == nil {
		err = cerr
	}
	return err
}

type multiCloser []io.Closer

func (mc multiCloser) Close() error {
	var first error
	for _, c := range mc {
		if c == nil {
			continue
		}
		if err := c.Close(); first == nil {
			first = err
		}
	}
	return first
}

func closeAll(gz *gzip.Reader, f *os.File) {
	if gz != nil {
		gz.Close()
	}
	if f != nil {
		f.Close()
	}
}
