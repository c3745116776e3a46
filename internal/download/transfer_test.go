package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phttp "github.com/handiism/paletti/internal/http"
	"github.com/handiism/paletti/internal/model"
)

// chunkedServer declares size on HEAD and sends the parts on GET, flushing
// after each one.
func chunkedServer(t *testing.T, size int, parts ...int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(size))
		if r.Method == http.MethodHead {
			return
		}
		for _, n := range parts {
			w.Write(payload(n))
			w.(http.Flusher).Flush()
		}
	}))
}

func newFetcher() *Fetcher {
	return NewFetcher(phttp.NewClient(), DefaultFetcherConfig(), nil)
}

func TestTransfer_SingleAudioLeg(t *testing.T) {
	// Two parts that add up to the declared size.
	srv := chunkedServer(t, 132000, 131105, 895)
	defer srv.Close()

	prefix := filepath.Join(t.TempDir(), "song")
	audio := &model.Stream{URL: srv.URL, Container: "webm", Codec: "opus", Type: model.StreamAudio}

	var calls atomic.Int32
	var gotPrefix string
	tr, err := NewTransfer(context.Background(), newFetcher(), prefix, []*model.Stream{audio, nil}, func(p string) {
		calls.Add(1)
		gotPrefix = p
	})
	require.NoError(t, err)
	require.Len(t, tr.Legs(), 1)
	assert.Equal(t, StateIdle, tr.State())

	_, total := tr.Progress()
	assert.Equal(t, int64(132000), total)

	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Wait())

	done, total := tr.Progress()
	assert.Equal(t, int64(132000), done)
	assert.Equal(t, int64(132000), total)
	assert.Equal(t, StateFinished, tr.State())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, prefix, gotPrefix)
	assert.Equal(t, int64(132000), tr.Legs()[0].Written())

	info, err := os.Stat(audio.LegPath(prefix))
	require.NoError(t, err)
	assert.Equal(t, int64(132000), info.Size())
}

func TestTransfer_TwoLegsCompleteOnce(t *testing.T) {
	audioSrv := chunkedServer(t, 50_000, 50_000)
	defer audioSrv.Close()
	videoSrv := chunkedServer(t, 400_000, 200_000, 200_000)
	defer videoSrv.Close()

	prefix := filepath.Join(t.TempDir(), "clip")
	streams := []*model.Stream{
		{URL: audioSrv.URL, Container: "webm", Codec: "opus", Type: model.StreamAudio},
		{URL: videoSrv.URL, Container: "webm", Codec: "vp9", Type: model.StreamVideo},
	}

	var calls atomic.Int32
	tr, err := NewTransfer(context.Background(), newFetcher(), prefix, streams, func(string) { calls.Add(1) })
	require.NoError(t, err)

	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Wait())

	done, total := tr.Progress()
	assert.Equal(t, int64(450_000), total)
	assert.Equal(t, total, done)

	var sum int64
	for _, leg := range tr.Legs() {
		sum += leg.Written()
	}
	assert.Equal(t, sum, done)
	assert.Equal(t, StateFinished, tr.State())
	assert.Equal(t, int32(1), calls.Load())
	assert.NotEmpty(t, tr.ID())
}

func TestTransfer_AllStreamsNil(t *testing.T) {
	_, err := NewTransfer(context.Background(), newFetcher(), "x", []*model.Stream{nil, nil}, nil)
	assert.ErrorIs(t, err, ErrNoLegs)
}

func TestTransfer_SizeProbeFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	prefix := filepath.Join(t.TempDir(), "missing")
	s := &model.Stream{URL: srv.URL, Container: "mp4", Codec: "avc1", Type: model.StreamVideo}

	_, err := NewTransfer(context.Background(), newFetcher(), prefix, []*model.Stream{s}, nil)
	require.ErrorIs(t, err, ErrSizeProbeFailed)

	_, statErr := os.Stat(s.LegPath(prefix))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTransfer_Cancel(t *testing.T) {
	const size = 64 * 1024
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(size))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(payload(1024))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Write(payload(size - 1024))
	}))
	defer srv.Close()

	f := NewFetcher(phttp.NewClient(), FetcherConfig{ChunkSize: 1024}, nil)
	prefix := filepath.Join(t.TempDir(), "cancel")
	s := &model.Stream{URL: srv.URL, Container: "mp4", Codec: "avc1", Type: model.StreamVideo}

	var calls atomic.Int32
	tr, err := NewTransfer(context.Background(), f, prefix, []*model.Stream{s}, func(string) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	require.Eventually(t, func() bool {
		done, _ := tr.Progress()
		return done > 0
	}, 5*time.Second, 5*time.Millisecond)

	tr.Cancel()
	assert.Equal(t, StateCancelled, tr.State())
	close(release)

	require.NoError(t, tr.Wait())
	done, total := tr.Progress()
	assert.Less(t, done, total)
	// At most one chunk may land after Cancel returns.
	assert.LessOrEqual(t, done, int64(2048))
	assert.Equal(t, StateCancelled, tr.State())
	assert.Zero(t, calls.Load())

	_, statErr := os.Stat(s.LegPath(prefix))
	assert.NoError(t, statErr, "partial file is left on disk")

	assert.ErrorIs(t, tr.Start(context.Background()), ErrNotIdle)
}

func TestTransfer_ContextCancel(t *testing.T) {
	const size = 64 * 1024
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(size))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(payload(1024))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := NewFetcher(phttp.NewClient(), FetcherConfig{ChunkSize: 1024}, nil)
	s := &model.Stream{URL: srv.URL, Container: "mp4", Codec: "avc1", Type: model.StreamVideo}

	var calls atomic.Int32
	tr, err := NewTransfer(context.Background(), f, filepath.Join(t.TempDir(), "ctx"), []*model.Stream{s}, func(string) { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tr.Start(ctx))

	require.Eventually(t, func() bool {
		done, _ := tr.Progress()
		return done > 0
	}, 5*time.Second, 5*time.Millisecond)

	// The request breaks off before anyone calls Cancel.
	cancel()

	require.NoError(t, tr.Wait())
	assert.NoError(t, tr.Err())
	assert.Equal(t, StateCancelled, tr.State())
	assert.True(t, tr.Cancelled())
	assert.Zero(t, calls.Load())
}

func TestTransfer_CancelIdle(t *testing.T) {
	srv := chunkedServer(t, 10, 10)
	defer srv.Close()

	s := &model.Stream{URL: srv.URL, Container: "mp4", Codec: "avc1", Type: model.StreamVideo}
	tr, err := NewTransfer(context.Background(), newFetcher(), filepath.Join(t.TempDir(), "idle"), []*model.Stream{s}, nil)
	require.NoError(t, err)

	tr.Cancel()
	assert.Equal(t, StateCancelled, tr.State())
	assert.ErrorIs(t, tr.Start(context.Background()), ErrNotIdle)
}

func TestTransfer_LegFailureKeepsSibling(t *testing.T) {
	good := chunkedServer(t, 20_000, 20_000)
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5000")
		if r.Method == http.MethodHead {
			return
		}
		w.Write(payload(100))
	}))
	defer bad.Close()

	prefix := filepath.Join(t.TempDir(), "partial")
	audio := &model.Stream{URL: good.URL, Container: "webm", Codec: "opus", Type: model.StreamAudio}
	video := &model.Stream{URL: bad.URL, Container: "webm", Codec: "vp9", Type: model.StreamVideo}

	var calls atomic.Int32
	tr, err := NewTransfer(context.Background(), newFetcher(), prefix, []*model.Stream{audio, video}, func(string) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	err = tr.Wait()
	assert.ErrorIs(t, err, ErrTransferInterrupted)
	assert.ErrorIs(t, tr.Err(), ErrTransferInterrupted)
	assert.Equal(t, StateCancelled, tr.State())
	assert.Zero(t, calls.Load())

	info, statErr := os.Stat(audio.LegPath(prefix))
	require.NoError(t, statErr)
	assert.Equal(t, int64(20_000), info.Size())
}

func TestTransfer_ProgressNeverExceedsTotal(t *testing.T) {
	// HEAD under-reports the size; the body is longer.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "100")
			return
		}
		w.(http.Flusher).Flush()
		w.Write(payload(150))
	}))
	defer srv.Close()

	s := &model.Stream{URL: srv.URL, Container: "mp3", Codec: "mp3", Type: model.StreamAudio}
	tr, err := NewTransfer(context.Background(), newFetcher(), filepath.Join(t.TempDir(), "over"), []*model.Stream{s}, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Wait())

	done, total := tr.Progress()
	assert.Equal(t, int64(100), total)
	assert.Equal(t, int64(100), done)
	assert.Equal(t, StateFinished, tr.State())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateIdle, "idle", false},
		{StateActive, "active", false},
		{StateCancelled, "cancelled", true},
		{StateFinished, "finished", true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}
