// Package request bridges heterogeneous sources and destinations into the
// uniform byte-addressable handle codecs consume. A Request wraps one
// normalized descriptor, defers any network or archive I/O until first
// access, and guarantees that whatever it opened or materialized is
// released exactly once.
package request

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mferrell/frameio/internal/resource"
	"github.com/mferrell/frameio/internal/types"
)

// DefaultMaxBytes is the materialization guard applied when the caller
// does not configure one.
const DefaultMaxBytes int64 = 1 << 30 // 1 GiB

// Config carries the knobs a Request needs from the caller.
type Config struct {
	// TempDir is where materialized copies are created. Empty means the
	// system temp directory.
	TempDir string

	// MaxBytes aborts any materialization that would exceed this many
	// bytes. Zero means DefaultMaxBytes.
	MaxBytes int64

	// Fetcher overrides the default fetcher for remote URLs. Required
	// for schemes without a built-in fetcher (ftp).
	Fetcher Fetcher

	// Logger receives debug events for materialization and cleanup.
	// nil means slog.Default.
	Logger *slog.Logger
}

// Request is the bridging object between one descriptor and one codec
// session. It implements types.Handle. A Request is created per session,
// is not safe for concurrent use, and is released when its owning session
// closes.
type Request struct {
	desc *resource.Descriptor
	cfg  Config
	log  *slog.Logger

	// Read-side state. Materialization runs at most once; its outcome,
	// including failure, is cached for the lifetime of the Request.
	attempted bool
	matErr    error
	ra        io.ReaderAt
	raSize    int64
	owned     io.Closer // handle this request opened and must close
	localPath string    // known local path, set once available
	tempPath  string    // temp file owned by this request
	prefix    []byte    // peek cache

	// Write-side state. The destination is opened lazily on first write.
	sink     io.Writer
	outFile  *os.File
	outTemp  string // temp path pending rename to outFinal
	outFinal string

	released bool
}

// New binds a Request to a normalized descriptor.
func New(desc *resource.Descriptor, cfg Config) *Request {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Request{desc: desc, cfg: cfg, log: log}
}

// Descriptor returns the descriptor this request wraps.
func (r *Request) Descriptor() *resource.Descriptor { return r.desc }

// Name returns the resource identifier for error messages and logs.
func (r *Request) Name() string { return r.desc.Name() }

// Mode reports the request direction.
func (r *Request) Mode() types.Mode { return r.desc.Mode }

// Peek returns up to n bytes from the start of the source without
// disturbing the primary cursor. Results are cached, so repeated peeks
// cost nothing and sniffing never perturbs a later read.
func (r *Request) Peek(n int) ([]byte, error) {
	if r.desc.Mode != types.ModeRead {
		return nil, fmt.Errorf("%s: peek on a write request: %w", r.Name(), types.ErrSession)
	}
	if n <= len(r.prefix) {
		return clone(r.prefix[:n]), nil
	}

	// A plain forward-only reader can be peeked without forcing
	// materialization: consume into the cache, replay later.
	if h := r.plainReader(); h != nil && !r.attempted {
		missing := n - len(r.prefix)
		buf := make([]byte, missing)
		read, err := io.ReadFull(h, buf)
		r.prefix = append(r.prefix, buf[:read]...)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return clone(r.prefix), nil
		}
		if err != nil {
			return nil, &types.SourceUnreachableError{
				Resource: r.Name(), Reason: "read failed", Err: err,
			}
		}
		return clone(r.prefix[:n]), nil
	}

	ra, size, err := r.ReaderAt()
	if err != nil {
		return nil, err
	}
	if int64(n) > size {
		n = int(size)
	}
	if n <= len(r.prefix) {
		return clone(r.prefix[:n]), nil
	}
	buf := make([]byte, n)
	// A peek spanning the whole resource may report io.EOF alongside a
	// full buffer.
	if got, err := ra.ReadAt(buf, 0); err != nil && (err != io.EOF || got < len(buf)) {
		return nil, &types.SourceUnreachableError{
			Resource: r.Name(), Reason: "read failed", Err: err,
		}
	}
	r.prefix = buf
	return clone(buf), nil
}

// plainReader returns the caller-supplied handle when it is a
// forward-only reader, the only shape whose peek must consume-and-cache
// instead of re-reading at offset zero.
func (r *Request) plainReader() io.Reader {
	if r.desc.Kind != resource.KindHandle {
		return nil
	}
	if _, ok := r.desc.Handle.(io.ReaderAt); ok {
		return nil
	}
	if _, ok := r.desc.Handle.(io.Seeker); ok {
		return nil
	}
	reader, _ := r.desc.Handle.(io.Reader)
	return reader
}

// ReaderAt returns random access over the whole source plus its size,
// materializing non-local sources first.
func (r *Request) ReaderAt() (io.ReaderAt, int64, error) {
	if r.desc.Mode != types.ModeRead {
		return nil, 0, fmt.Errorf("%s: read access on a write request: %w", r.Name(), types.ErrSession)
	}
	if err := r.ensure(); err != nil {
		return nil, 0, err
	}
	return r.ra, r.raSize, nil
}

// Reader returns a fresh seekable cursor over the source.
func (r *Request) Reader() (io.ReadSeeker, error) {
	ra, size, err := r.ReaderAt()
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(ra, 0, size), nil
}

// LocalPath returns a filesystem path for codecs that need native file
// access, materializing the source into a private temp file when it is
// not already a local file.
func (r *Request) LocalPath() (string, error) {
	if r.desc.Mode != types.ModeRead {
		return "", fmt.Errorf("%s: local path on a write request: %w", r.Name(), types.ErrSession)
	}
	if r.desc.Kind == resource.KindLocalFile {
		return r.desc.Path, nil
	}
	if err := r.ensure(); err != nil {
		return "", err
	}
	if r.localPath != "" {
		return r.localPath, nil
	}

	// In-memory and directly-usable handles have no backing file yet:
	// spill the bytes into an owned temp file. The size guard applies to
	// this copy the same as to any other materialization.
	if r.raSize > r.cfg.MaxBytes {
		return "", &types.TooLargeError{
			Resource: r.Name(), Size: r.raSize, Limit: r.cfg.MaxBytes,
		}
	}
	f, err := r.newTemp()
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.NewSectionReader(r.ra, 0, r.raSize))
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", &types.SourceUnreachableError{
			Resource: r.Name(), Reason: "cannot write temp copy", Err: err,
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", &types.SourceUnreachableError{
			Resource: r.Name(), Reason: "cannot write temp copy", Err: err,
		}
	}
	r.tempPath = f.Name()
	r.localPath = f.Name()
	r.log.Debug("spilled source to temp file",
		"resource", r.Name(), "temp", r.localPath, "bytes", n)
	return r.localPath, nil
}

// Writer returns the destination byte sink, opening or creating the
// backing target lazily on first use. Local destinations are written via
// a temp file in the same directory and renamed into place on commit.
func (r *Request) Writer() (io.Writer, error) {
	if r.desc.Mode != types.ModeWrite {
		return nil, fmt.Errorf("%s: write access on a read request: %w", r.Name(), types.ErrSession)
	}
	if r.sink != nil {
		return r.sink, nil
	}

	switch r.desc.Kind {
	case resource.KindLocalFile:
		dir := filepath.Dir(r.desc.Path)
		f, err := os.CreateTemp(dir, ".frameio-*.tmp")
		if err != nil {
			return nil, &types.NotWritableError{
				Resource: r.desc.Path,
				Reason:   fmt.Sprintf("cannot create file in %s: %v", dir, err),
			}
		}
		r.outFile = f
		r.outTemp = f.Name()
		r.outFinal = r.desc.Path
		r.sink = f

	case resource.KindBytes:
		r.sink = r.desc.Buffer

	case resource.KindHandle:
		w, ok := r.desc.Handle.(io.Writer)
		if !ok {
			return nil, &types.NotWritableError{
				Resource: r.Name(), Reason: "handle is not an io.Writer",
			}
		}
		r.sink = w

	default:
		return nil, &types.NotWritableError{
			Resource: r.Name(),
			Reason:   fmt.Sprintf("%s destinations are not supported", r.desc.Kind),
		}
	}
	return r.sink, nil
}

// Release frees everything the request owns: open handles and temp
// files. In write mode, commit controls whether a pending local temp
// file is renamed onto the destination or discarded. Release is
// idempotent and safe on every exit path.
func (r *Request) Release(commit bool) error {
	if r.released {
		return nil
	}
	r.released = true

	var first error
	keep := func(err error) {
		if first == nil && err != nil {
			first = err
		}
	}

	if r.owned != nil {
		keep(r.owned.Close())
	}
	if r.tempPath != "" {
		keep(os.Remove(r.tempPath))
		r.log.Debug("removed temp file", "resource", r.Name(), "temp", r.tempPath)
	}

	if r.outFile != nil {
		syncErr := r.outFile.Sync()
		closeErr := r.outFile.Close()
		if commit && syncErr == nil && closeErr == nil {
			keep(os.Rename(r.outTemp, r.outFinal))
		} else {
			keep(syncErr)
			keep(closeErr)
			os.Remove(r.outTemp)
		}
	}
	return first
}

// ensure runs materialization at most once and caches its outcome.
func (r *Request) ensure() error {
	if r.attempted {
		return r.matErr
	}
	r.attempted = true
	r.matErr = r.materialize()
	return r.matErr
}

// materialize resolves the descriptor into an io.ReaderAt plus size.
// Exactly one strategy per source kind.
func (r *Request) materialize() error {
	switch r.desc.Kind {
	case resource.KindLocalFile:
		f, err := os.Open(r.desc.Path)
		if err != nil {
			return &types.SourceUnreachableError{
				Resource: r.desc.Path, Reason: "cannot open file", Err: err,
			}
		}
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return &types.SourceUnreachableError{
				Resource: r.desc.Path, Reason: "cannot stat file", Err: err,
			}
		}
		r.ra = f
		r.raSize = st.Size()
		r.owned = f
		r.localPath = r.desc.Path
		return nil

	case resource.KindBytes:
		r.ra = bytes.NewReader(r.desc.Bytes)
		r.raSize = int64(len(r.desc.Bytes))
		return nil

	case resource.KindRemoteURL:
		fetcher := r.cfg.Fetcher
		if fetcher == nil {
			fetcher = fetcherFor(r.desc.URL)
		}
		if fetcher == nil {
			return &types.SourceUnreachableError{
				Resource: r.desc.URL,
				Reason:   "no fetcher available for this URL scheme",
			}
		}
		body, err := fetcher.Fetch(r.desc.URL)
		if err != nil {
			return &types.SourceUnreachableError{
				Resource: r.desc.URL, Reason: "fetch failed", Err: err,
			}
		}
		defer body.Close()
		return r.spill(body)

	case resource.KindArchiveMember:
		member, err := openArchiveMember(r.desc.Archive, r.desc.Member)
		if err != nil {
			return &types.SourceUnreachableError{
				Resource: r.Name(), Reason: "cannot open archive member", Err: err,
			}
		}
		defer member.Close()
		return r.spill(member)

	case resource.KindHandle:
		return r.materializeHandle()

	default:
		return &types.UnrecognizedSourceError{
			Input: r.desc.Kind.String(), Mode: r.desc.Mode,
		}
	}
}

// materializeHandle adapts a caller-supplied open stream. Random-access
// handles are used in place; forward-only readers are spilled to a temp
// file, replaying any bytes the peek cache already consumed.
func (r *Request) materializeHandle() error {
	if f, ok := r.desc.Handle.(*os.File); ok {
		st, err := f.Stat()
		if err != nil {
			return &types.SourceUnreachableError{
				Resource: r.Name(), Reason: "cannot stat handle", Err: err,
			}
		}
		// The caller owns the handle; the request must not close it.
		r.ra = f
		r.raSize = st.Size()
		r.localPath = f.Name()
		return nil
	}

	if ra, ok := r.desc.Handle.(io.ReaderAt); ok {
		if size, ok := sizeOf(r.desc.Handle); ok {
			r.ra = ra
			r.raSize = size
			return nil
		}
	}

	reader, ok := r.desc.Handle.(io.Reader)
	if !ok {
		return &types.UnrecognizedSourceError{
			Input: fmt.Sprintf("%T", r.desc.Handle), Mode: r.desc.Mode,
		}
	}
	if s, ok := reader.(io.Seeker); ok {
		// Seekable but not random-access: rewind so the spilled copy
		// covers the whole stream.
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return &types.SourceUnreachableError{
				Resource: r.Name(), Reason: "cannot rewind handle", Err: err,
			}
		}
	}
	src := io.Reader(reader)
	if len(r.prefix) > 0 {
		src = io.MultiReader(bytes.NewReader(r.prefix), reader)
	}
	return r.spill(src)
}

// sizeOf learns the total size of a random-access handle without
// disturbing its cursor.
func sizeOf(h any) (int64, bool) {
	if s, ok := h.(interface{ Size() int64 }); ok {
		return s.Size(), true
	}
	if s, ok := h.(io.Seeker); ok {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, false
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, false
		}
		if _, err := s.Seek(cur, io.SeekStart); err != nil {
			return 0, false
		}
		return end, true
	}
	return 0, false
}

// spill copies src into an owned temp file, enforcing the byte-size
// guard. On any failure the partial temp file is removed.
func (r *Request) spill(src io.Reader) error {
	f, err := r.newTemp()
	if err != nil {
		return err
	}

	limit := r.cfg.MaxBytes
	n, err := io.Copy(f, io.LimitReader(src, limit+1))
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return &types.SourceUnreachableError{
			Resource: r.Name(), Reason: "materialization failed", Err: err,
		}
	}
	if n > limit {
		f.Close()
		os.Remove(f.Name())
		return &types.TooLargeError{Resource: r.Name(), Size: n, Limit: limit}
	}

	r.ra = f
	r.raSize = n
	r.owned = f
	r.tempPath = f.Name()
	r.localPath = f.Name()
	r.log.Debug("materialized source",
		"resource", r.Name(), "temp", r.tempPath, "bytes", n)
	return nil
}

func (r *Request) newTemp() (*os.File, error) {
	dir := r.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "frameio-*"+r.desc.Ext)
	if err != nil {
		return nil, &types.SourceUnreachableError{
			Resource: r.Name(), Reason: "cannot create temp file", Err: err,
		}
	}
	return f, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
