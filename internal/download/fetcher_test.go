package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phttp "github.com/handiism/paletti/internal/http"
	"github.com/handiism/paletti/internal/model"
)

var modTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// rangeServer serves data through a "range=start-end" query parameter and
// records every requested range. short caps the bytes sent per segment.
type rangeServer struct {
	data  []byte
	short int

	mu       sync.Mutex
	requests []string
}

func (s *rangeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.Itoa(len(s.data)))
		return
	}

	rng := r.URL.Query().Get("range")
	s.mu.Lock()
	s.requests = append(s.requests, rng)
	s.mu.Unlock()

	var start, end int
	if _, err := fmt.Sscanf(rng, "%d-%d", &start, &end); err != nil {
		http.Error(w, "bad range", http.StatusBadRequest)
		return
	}
	if start >= len(s.data) {
		return
	}
	if end >= len(s.data) {
		end = len(s.data) - 1
	}
	chunk := s.data[start : end+1]
	if s.short > 0 && len(chunk) > s.short {
		chunk = chunk[:s.short]
	}
	w.Write(chunk)
}

func TestFetcher_Direct(t *testing.T) {
	data := payload(300_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "v.webm", modTime, bytes.NewReader(data))
	}))
	defer srv.Close()

	f := NewFetcher(phttp.NewClient(), DefaultFetcherConfig(), nil)
	dest := filepath.Join(t.TempDir(), "out")

	var reported int64
	var chunks int
	n, err := f.Fetch(context.Background(), Request{
		Stream: model.Stream{URL: srv.URL + "/v.webm"},
		Path:   dest,
	}, func(n int64) {
		reported += n
		chunks++
		assert.LessOrEqual(t, n, int64(DefaultChunkSize))
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, int64(len(data)), reported)
	assert.GreaterOrEqual(t, chunks, 3)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFetcher_Segmented(t *testing.T) {
	rs := &rangeServer{data: payload(2500)}
	srv := httptest.NewServer(rs)
	defer srv.Close()

	f := NewFetcher(phttp.NewClient(), FetcherConfig{SegmentSize: 1000, ChunkSize: 256}, nil)
	dest := filepath.Join(t.TempDir(), "out")

	var reported int64
	n, err := f.Fetch(context.Background(), Request{
		Stream: model.Stream{URL: srv.URL + "/v?sig=abc", Range: &model.RangeParam{Key: "range", Format: "-"}},
		Path:   dest,
	}, func(n int64) { reported += n }, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2500), n)
	assert.Equal(t, int64(2500), reported)
	assert.Equal(t, []string{"0-999", "1000-1999", "2000-2999"}, rs.requests)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, rs.data, got)
}

func TestFetcher_SegmentOffsetAdvancesByRequestedSpan(t *testing.T) {
	rs := &rangeServer{data: payload(1500), short: 600}
	srv := httptest.NewServer(rs)
	defer srv.Close()

	f := NewFetcher(phttp.NewClient(), FetcherConfig{SegmentSize: 1000, ChunkSize: 256}, nil)
	n, err := f.Fetch(context.Background(), Request{
		Stream: model.Stream{URL: srv.URL + "/v", Range: &model.RangeParam{Key: "range", Format: "-"}},
		Path:   filepath.Join(t.TempDir(), "out"),
	}, nil, nil)

	// 600 bytes from the first segment and 500 from the second leave the
	// total short, and the third segment starts past the end.
	assert.ErrorIs(t, err, ErrTransferInterrupted)
	assert.Equal(t, int64(1100), n)
	assert.Equal(t, []string{"0-999", "1000-1999", "2000-2999"}, rs.requests)
}

func TestFetcher_SizeProbeFailedCreatesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(phttp.NewClient(), DefaultFetcherConfig(), nil)
	dest := filepath.Join(t.TempDir(), "out")

	_, err := f.Fetch(context.Background(), Request{Stream: model.Stream{URL: srv.URL}, Path: dest}, nil, nil)
	require.ErrorIs(t, err, ErrSizeProbeFailed)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindSizeProbe, fe.Kind)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_Interrupted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5000")
		if r.Method == http.MethodHead {
			return
		}
		w.Write(payload(100))
	}))
	defer srv.Close()

	f := NewFetcher(phttp.NewClient(), DefaultFetcherConfig(), nil)
	dest := filepath.Join(t.TempDir(), "out")

	n, err := f.Fetch(context.Background(), Request{Stream: model.Stream{URL: srv.URL}, Path: dest}, nil, nil)
	require.ErrorIs(t, err, ErrTransferInterrupted)
	assert.Equal(t, int64(100), n)

	info, statErr := os.Stat(dest)
	require.NoError(t, statErr)
	assert.Equal(t, int64(100), info.Size())
}

type cancelFlag bool

func (f *cancelFlag) Cancelled() bool { return bool(*f) }

func TestFetcher_CancelBeforeFirstChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.Write(payload(10))
	}))
	defer srv.Close()

	cancelled := cancelFlag(true)
	f := NewFetcher(phttp.NewClient(), DefaultFetcherConfig(), nil)
	dest := filepath.Join(t.TempDir(), "out")

	n, err := f.Fetch(context.Background(), Request{Stream: model.Stream{URL: srv.URL}, Path: dest}, nil, &cancelled)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, n)

	_, statErr := os.Stat(dest)
	assert.NoError(t, statErr, "partial file is left on disk")
}

func TestSegmentURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		rp   model.RangeParam
		want string
	}{
		{"no query", "https://cdn.example.com/v", model.RangeParam{Key: "range", Format: "-"}, "https://cdn.example.com/v?range=0-99"},
		{"existing query", "https://cdn.example.com/v?sig=a%2Fb", model.RangeParam{Key: "range", Format: "-"}, "https://cdn.example.com/v?sig=a%2Fb&range=0-99"},
		{"custom format", "https://cdn.example.com/v", model.RangeParam{Key: "bytes", Format: ":"}, "https://cdn.example.com/v?bytes=0%3A99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := segmentURL(tt.base, tt.rp, 0, 99)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Kind: KindInterrupted, URL: "u", Written: 7, Err: errors.New("reset")}
	assert.True(t, strings.Contains(err.Error(), "after 7 bytes"))
	assert.False(t, errors.Is(err, ErrSizeProbeFailed))
	assert.Equal(t, "interrupted", err.Kind.String())
}
