package frameio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ReadAll reads every frame of a source in order.
//
// It is the one-call form of GetReader for callers that want all frames
// in memory; the session is opened and closed internally. Sources of
// unknown length are read until end of stream.
//
//	frames, err := frameio.ReadAll("https://example.com/clip.fcf")
func ReadAll(source any, opts ...Option) ([]Frame, error) {
	r, err := GetReader(source, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var frames []Frame
	n := r.Length()
	if n != LengthUnknown {
		frames = make([]Frame, 0, n)
	}
	for i := 0; n == LengthUnknown || i < n; i++ {
		data, meta, err := r.Frame(i)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{Data: data, Meta: meta})
	}
	return frames, nil
}

// ReadFirst reads only the first frame of a source. For single-frame
// formats this is the natural way to read the resource.
func ReadFirst(source any, opts ...Option) (Frame, error) {
	r, err := GetReader(source, opts...)
	if err != nil {
		return Frame{}, err
	}
	defer r.Close()

	data, meta, err := r.Frame(0)
	if err == io.EOF {
		return Frame{}, fmt.Errorf("%s: source holds no frames", r.Name())
	}
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data, Meta: meta}, nil
}

// WriteAll writes frames to a destination in one call. The session is
// opened, filled, and committed internally; any failure discards the
// partial output.
//
//	err := frameio.WriteAll("out.fcf", frames)
func WriteAll(dest any, frames []Frame, opts ...Option) error {
	w, err := GetWriter(dest, opts...)
	if err != nil {
		return err
	}

	for _, f := range frames {
		if err := w.Append(f.Data, f.Meta); err != nil {
			return errors.Join(err, w.Close())
		}
	}
	return w.Close()
}

// OpenMany opens read sessions on multiple sources concurrently, using
// up to runtime.NumCPU() goroutines. Results are returned in input
// order.
//
// If any source fails to open, every session that did open is closed
// and only the error is returned.
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	readers, err := frameio.OpenMany(ctx, paths...)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer func() {
//		for _, r := range readers {
//			r.Close()
//		}
//	}()
func OpenMany(ctx context.Context, sources ...any) ([]*Reader, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*Reader, len(sources))
	for i, src := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			r, err := GetReader(src)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, r := range results {
			if r != nil {
				r.Close()
			}
		}
		return nil, err
	}
	return results, nil
}
