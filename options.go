package frameio

import (
	"log/slog"

	"github.com/mferrell/frameio/internal/request"
)

// Option configures a single GetReader or GetWriter call.
//
// Options use the functional options pattern:
//
//	r, err := frameio.GetReader(src,
//	    frameio.WithFormat("fcf"),
//	    frameio.WithMaxBytes(64<<20),
//	)
type Option func(*sessionOptions)

// Fetcher retrieves the content of a remote URL. Supply one through
// WithFetcher to override the built-in HTTP fetcher or to support
// schemes (such as ftp) that have no built-in transport.
type Fetcher = request.Fetcher

// sessionOptions holds per-call configuration.
type sessionOptions struct {
	format   string            // explicit format hint, bypasses detection
	tempDir  string            // where materialized copies land
	maxBytes int64             // materialization guard, 0 = default
	prefer   map[string]string // extension -> format name overrides
	fetcher  Fetcher
	logger   *slog.Logger
}

func defaultSessionOptions() *sessionOptions {
	return &sessionOptions{}
}

func (o *sessionOptions) requestConfig() request.Config {
	return request.Config{
		TempDir:  o.tempDir,
		MaxBytes: o.maxBytes,
		Fetcher:  o.fetcher,
		Logger:   o.logger,
	}
}

// hintFor resolves the format hint for a resource: an explicit
// WithFormat always wins, then any configured extension preference.
func (o *sessionOptions) hintFor(ext string) string {
	if o.format != "" {
		return o.format
	}
	if ext != "" {
		return o.prefer[ext]
	}
	return ""
}

// WithFormat names the format explicitly, bypassing extension matching
// and content sniffing. The call fails with NoMatchingFormatError if no
// format is registered under the name, and with ModeNotSupportedError if
// the named format cannot serve the requested direction.
//
//	r, err := frameio.GetReader("dump.dat", frameio.WithFormat("raw"))
func WithFormat(name string) Option {
	return func(o *sessionOptions) {
		o.format = name
	}
}

// WithTempDir places materialized copies (downloads, archive
// extractions, spilled streams) in dir instead of the system temp
// directory.
func WithTempDir(dir string) Option {
	return func(o *sessionOptions) {
		o.tempDir = dir
	}
}

// WithMaxBytes caps how many bytes a single source may materialize.
// Exceeding the cap aborts with a TooLargeError and removes any partial
// copy. The default is 1 GiB.
func WithMaxBytes(n int64) Option {
	return func(o *sessionOptions) {
		o.maxBytes = n
	}
}

// WithFetcher overrides how remote URLs are retrieved. Required for
// schemes without a built-in transport (ftp); optional for http(s),
// where it replaces the default client.
func WithFetcher(f Fetcher) Option {
	return func(o *sessionOptions) {
		o.fetcher = f
	}
}

// WithLogger directs debug events (materialization, cleanup) to the
// given structured logger instead of slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = l
	}
}

// WithConfig applies a loaded configuration file as the option baseline.
// Options placed after it in the argument list override its values.
//
//	cfg, err := frameio.LoadConfig("frameio.toml")
//	...
//	r, err := frameio.GetReader(src, frameio.WithConfig(cfg))
func WithConfig(c *Config) Option {
	return func(o *sessionOptions) {
		if c == nil {
			return
		}
		if c.TempDir != "" {
			o.tempDir = c.TempDir
		}
		if c.MaxBytes > 0 {
			o.maxBytes = c.MaxBytes
		}
		if len(c.Prefer) > 0 {
			o.prefer = normalizePrefer(c.Prefer)
		}
	}
}
