// Package frameio reads and writes frame-oriented data through a single
// pluggable API, regardless of where the bytes live or which format
// holds them.
//
// # Quick Start
//
// Reading every frame of a local file:
//
//	frames, err := frameio.ReadAll("clip.fcf")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%d frames\n", len(frames))
//
// Writing frames:
//
//	err := frameio.WriteAll("out.fcf", frames)
//
// # Sources and Destinations
//
// The same call accepts many source shapes; frameio normalizes them
// behind the scenes:
//
//   - local paths, with "~" expansion ("~/data/clip.fcf")
//   - http:// and https:// URLs (downloaded to a private temp file)
//   - members inside archives ("bundle.zip/inner/clip.fcf", also .tar,
//     .tar.gz and .tgz)
//   - []byte and *bytes.Buffer
//   - already-open handles: *os.File, io.Reader, io.ReaderAt, io.Writer
//
// Remote and archive-embedded sources are fetched lazily: no network or
// extraction happens until a codec actually touches the bytes, and
// anything materialized is cleaned up when the session closes.
//
// # Sessions
//
// For frame-by-frame access open an explicit session:
//
//	r, err := frameio.GetReader("clip.fcf")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//
//	for i, frame := range r.Frames() {
//		process(i, frame.Data, frame.Meta)
//	}
//
// A Reader with random access (and a known length) accepts frame
// indices in any order; other readers require strictly increasing
// indices and return a SequentialAccessError otherwise.
//
// # Formats
//
// Formats are chosen by explicit hint (WithFormat), unique extension
// match, or content signature, in that order. Built-in formats:
//
//   - FCF: the native multi-frame container (random access, per-frame
//     CBOR metadata)
//   - PGM: binary P5 grayscale images, one frame per file
//   - RAW: the whole resource as one opaque frame (.raw, .bin)
//
// Third-party formats plug in through RegisterFormat; later
// registrations shadow earlier ones when signatures collide.
//
// # Error Handling
//
// Every failure unwraps to one of four category sentinels, so callers
// can classify without matching concrete types:
//
//	if errors.Is(err, frameio.ErrSource) { ... }  // unreachable resource
//	if errors.Is(err, frameio.ErrFormat) { ... }  // no format matched
//	if errors.Is(err, frameio.ErrSession) { ... } // session misuse
//	if errors.Is(err, frameio.ErrLimit) { ... }   // resource too large
//
// Concrete typed errors (NoMatchingFormatError, TooLargeError, ...)
// carry the resource name and the relevant details for errors.As.
package frameio
