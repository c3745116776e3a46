package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/handiism/paletti/internal/model"
)

const (
	// DefaultSegmentSize is the byte span requested per range segment.
	DefaultSegmentSize int64 = 10 << 20

	// DefaultChunkSize is the size of one read from a response body.
	DefaultChunkSize = 128 << 10
)

// Source is the transport the Fetcher reads from. *http.Client from
// internal/http implements it.
type Source interface {
	GetFileSize(ctx context.Context, url string) (int64, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// ProgressSink receives the exact number of bytes written after each chunk.
type ProgressSink func(n int64)

// CancelSignal is polled at every chunk and segment boundary.
type CancelSignal interface {
	Cancelled() bool
}

// FetcherConfig holds the segment and chunk sizes.
type FetcherConfig struct {
	SegmentSize int64
	ChunkSize   int
}

// DefaultFetcherConfig returns 10 MiB segments read in 128 KiB chunks.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		SegmentSize: DefaultSegmentSize,
		ChunkSize:   DefaultChunkSize,
	}
}

// Request describes one stream to fetch into one file.
type Request struct {
	Stream model.Stream

	// Path is the destination file. It is created or truncated.
	Path string

	// Size is the total size if already known. Zero or less triggers a
	// probe before any file is created.
	Size int64
}

// Fetcher retrieves a single stream into a file.
//
// Streams without a range parameter are fetched with one GET. Streams with
// a range parameter are fetched as sequential segments of SegmentSize bytes
// addressed through the "key=start{format}end" query parameter. In both
// modes the body is read in ChunkSize pieces and every piece is reported
// to the progress sink with its true length.
//
// Example:
//
//	f := download.NewFetcher(client, download.DefaultFetcherConfig(), log)
//	n, err := f.Fetch(ctx, download.Request{Stream: s, Path: "/tmp/out.webm"}, func(n int64) {
//	    total += n
//	}, nil)
type Fetcher struct {
	src Source
	cfg FetcherConfig
	log *zap.Logger
}

// NewFetcher creates a Fetcher. Non-positive sizes in cfg fall back to the
// defaults and a nil logger is replaced by a no-op one.
func NewFetcher(src Source, cfg FetcherConfig, log *zap.Logger) *Fetcher {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = DefaultSegmentSize
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{src: src, cfg: cfg, log: log}
}

// Probe resolves the total size of a stream with a metadata-only request.
func (f *Fetcher) Probe(ctx context.Context, s model.Stream) (int64, error) {
	size, err := f.src.GetFileSize(ctx, s.URL)
	if err != nil {
		return 0, &FetchError{Kind: KindSizeProbe, URL: s.URL, Err: err}
	}
	return size, nil
}

// Fetch retrieves req.Stream into req.Path and returns the bytes written.
//
// Errors:
//   - ErrSizeProbeFailed: the size could not be resolved; no file exists.
//   - ErrTransferInterrupted: the transfer broke off; the partial file stays.
//   - ErrCancelled: cancel was observed or ctx is done; the partial file
//     stays.
//
// The sink and cancel arguments may be nil.
func (f *Fetcher) Fetch(ctx context.Context, req Request, sink ProgressSink, cancel CancelSignal) (int64, error) {
	size := req.Size
	if size <= 0 {
		var err error
		if size, err = f.Probe(ctx, req.Stream); err != nil {
			return 0, err
		}
	}

	file, err := os.OpenFile(req.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, &FetchError{Kind: KindInterrupted, URL: req.Stream.URL, Err: err}
	}
	defer file.Close()

	if sink == nil {
		sink = func(int64) {}
	}
	if cancel == nil {
		cancel = never{}
	}

	var written int64
	if req.Stream.Segmented() {
		written, err = f.fetchSegmented(ctx, req.Stream, size, file, sink, cancel)
	} else {
		written, err = f.fetchDirect(ctx, req.Stream, size, file, sink, cancel)
	}

	if err != nil {
		// A request broken off by ctx or by cancel counts as cancelled.
		if errors.Is(err, ErrCancelled) || cancel.Cancelled() || ctx.Err() != nil {
			f.log.Debug("fetch cancelled",
				zap.String("path", req.Path),
				zap.Int64("written", written))
			return written, ErrCancelled
		}
		return written, &FetchError{Kind: KindInterrupted, URL: req.Stream.URL, Written: written, Err: err}
	}

	f.log.Debug("fetch complete",
		zap.String("path", req.Path),
		zap.Int64("written", written),
		zap.Int64("size", size))
	return written, nil
}

func (f *Fetcher) fetchDirect(ctx context.Context, s model.Stream, size int64, dst io.Writer, sink ProgressSink, cancel CancelSignal) (int64, error) {
	body, err := f.src.Open(ctx, s.URL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	written, err := f.copyChunks(dst, body, sink, cancel)
	if err != nil {
		return written, err
	}
	if size > 0 && written < size {
		return written, fmt.Errorf("body ended at %d of %d bytes: %w", written, size, io.ErrUnexpectedEOF)
	}
	return written, nil
}

// fetchSegmented requests [offset, offset+SegmentSize-1] until the bytes
// received reach size. The offset always advances by the requested span,
// even when a segment comes back shorter.
func (f *Fetcher) fetchSegmented(ctx context.Context, s model.Stream, size int64, dst io.Writer, sink ProgressSink, cancel CancelSignal) (int64, error) {
	var received int64
	for offset := int64(0); received < size; offset += f.cfg.SegmentSize {
		if cancel.Cancelled() {
			return received, ErrCancelled
		}

		segURL, err := segmentURL(s.URL, *s.Range, offset, offset+f.cfg.SegmentSize-1)
		if err != nil {
			return received, err
		}

		f.log.Debug("requesting segment",
			zap.String("url", segURL),
			zap.Int64("received", received),
			zap.Int64("size", size))

		body, err := f.src.Open(ctx, segURL)
		if err != nil {
			return received, err
		}

		n, err := f.copyChunks(dst, body, sink, cancel)
		body.Close()
		received += n
		if err != nil {
			return received, err
		}
		if n == 0 {
			return received, fmt.Errorf("empty segment at offset %d: %w", offset, io.ErrUnexpectedEOF)
		}
	}
	return received, nil
}

// copyChunks copies src to dst one chunk at a time, reporting each write.
func (f *Fetcher) copyChunks(dst io.Writer, src io.Reader, sink ProgressSink, cancel CancelSignal) (int64, error) {
	buf := make([]byte, f.cfg.ChunkSize)
	var written int64
	for {
		if cancel.Cancelled() {
			return written, ErrCancelled
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if w > 0 {
				sink(int64(w))
			}
			if werr != nil {
				return written, werr
			}
		}

		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// segmentURL appends "key=start{format}end" to the raw query of base,
// leaving existing parameters untouched.
func segmentURL(base string, rp model.RangeParam, start, end int64) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	param := url.QueryEscape(rp.Key) + "=" + url.QueryEscape(fmt.Sprintf("%d%s%d", start, rp.Format, end))
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}

type never struct{}

func (never) Cancelled() bool { return false }
