package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/paletti/internal/config"
	"github.com/handiism/paletti/internal/dispatch"
	"github.com/handiism/paletti/internal/download"
	"github.com/handiism/paletti/internal/plugin"
	"github.com/handiism/paletti/internal/selector"
)

const albumTemplate = `<html><script data-tralbum="{
	&quot;current&quot;:{&quot;id&quot;:1,&quot;title&quot;:&quot;Tape&quot;},
	&quot;artist&quot;:&quot;Band&quot;,
	&quot;item_type&quot;:&quot;album&quot;,
	&quot;trackinfo&quot;:[
		{&quot;id&quot;:1,&quot;track_num&quot;:1,&quot;title&quot;:&quot;Side A&quot;,&quot;title_link&quot;:&quot;/track/side-a&quot;,&quot;file&quot;:{&quot;mp3-128&quot;:&quot;BASE/audio/a.mp3&quot;}},
		{&quot;id&quot;:2,&quot;track_num&quot;:2,&quot;title&quot;:&quot;Side B&quot;,&quot;title_link&quot;:&quot;/track/side-b&quot;,&quot;file&quot;:{&quot;mp3-128&quot;:&quot;BASE/audio/b.mp3&quot;}}
	]
}"></script></html>`

const trackTemplate = `<html><script data-tralbum="{
	&quot;current&quot;:{&quot;id&quot;:ID,&quot;title&quot;:&quot;TITLE&quot;},
	&quot;artist&quot;:&quot;Band&quot;,
	&quot;item_type&quot;:&quot;track&quot;,
	&quot;trackinfo&quot;:[
		{&quot;id&quot;:ID,&quot;title&quot;:&quot;TITLE&quot;,&quot;file&quot;:{&quot;mp3-128&quot;:&quot;BASE/audio/FILE&quot;}}
	]
}"></script></html>`

func siteServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/album/tape", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.ReplaceAll(albumTemplate, "BASE", srv.URL))
	})
	track := func(id, title, file string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			page := strings.NewReplacer("ID", id, "TITLE", title, "FILE", file, "BASE", srv.URL).Replace(trackTemplate)
			fmt.Fprint(w, page)
		}
	}
	mux.HandleFunc("/track/side-a", track("1", "Side A", "a.mp3"))
	mux.HandleFunc("/track/side-b", track("2", "Side B", "b.mp3"))
	mux.HandleFunc("/track/broken", track("3", "Broken", "missing.mp3"))
	mux.HandleFunc("/audio/a.mp3", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "a.mp3", time.Time{}, bytes.NewReader(bytes.Repeat([]byte{'a'}, 3000)))
	})
	mux.HandleFunc("/audio/b.mp3", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "b.mp3", time.Time{}, bytes.NewReader(bytes.Repeat([]byte{'b'}, 5000)))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// testApp routes the local test server to the compiled bandcamp plugin.
func testApp(t *testing.T, notify download.Notifier) *App {
	t.Helper()
	dir := t.TempDir()
	manifest := "name: bandcamp\nhosts: [127.0.0.1]\nstream_type: audio\n"
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bandcamp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bandcamp", "plugin.yaml"), []byte(manifest), 0o644))

	s := config.DefaultSettings()
	s.PluginsPath = dir
	s.ProxyType = "none"
	s.ModifyTags = false
	s.SegmentSize = 1024
	s.ChunkSize = 256

	a, err := New(s, nil, notify)
	require.NoError(t, err)
	return a
}

type notices struct {
	mu     sync.Mutex
	events []download.ProgressEvent
}

func (n *notices) notify(e download.ProgressEvent) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *notices) count(level download.ProgressLevel) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Level == level {
			c++
		}
	}
	return c
}

func audioOnly() dispatch.Options {
	return dispatch.Options{Audio: true, Quality: selector.QualityBest}
}

func TestParseInput(t *testing.T) {
	assert.Equal(t,
		[]string{"https://a.bandcamp.com/album/x", "some query"},
		ParseInput("  https://a.bandcamp.com/album/x \n\n\tsome query\n"))
	assert.Empty(t, ParseInput(" \n "))
}

func TestPlan_ExpandsAlbum(t *testing.T) {
	srv := siteServer(t)
	n := &notices{}
	a := testApp(t, n.notify)

	entries, err := a.Plan(context.Background(), srv.URL+"/album/tape\n"+srv.URL+"/track/side-b", "bandcamp", plugin.Options{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, srv.URL+"/track/side-a", entries[0].URL)
	assert.Equal(t, srv.URL+"/track/side-b", entries[1].URL)
	assert.Equal(t, "Side B", entries[2].Title)
}

func TestPlan_AllLinesFail(t *testing.T) {
	n := &notices{}
	a := testApp(t, n.notify)

	_, err := a.Plan(context.Background(), "https://unknown.test/x", "bandcamp", plugin.Options{})
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
	assert.Equal(t, 1, n.count(download.LevelError))
}

func TestBatch_Run(t *testing.T) {
	srv := siteServer(t)
	n := &notices{}
	a := testApp(t, n.notify)
	ctx := context.Background()

	entries, err := a.Plan(ctx, srv.URL+"/album/tape", "bandcamp", plugin.Options{})
	require.NoError(t, err)

	out := t.TempDir()
	b := a.NewBatch()
	require.NoError(t, b.Run(ctx, entries, out, audioOnly()))

	received, total, files, totalFiles := b.Progress()
	assert.Equal(t, int64(8000), received)
	assert.Equal(t, int64(8000), total)
	assert.Equal(t, int32(2), files)
	assert.Equal(t, int32(2), totalFiles)

	data, err := os.ReadFile(filepath.Join(out, "Side_A.mp3"))
	require.NoError(t, err)
	assert.Len(t, data, 3000)
	assert.FileExists(t, filepath.Join(out, "Side_B.mp3"))
	assert.Equal(t, 2, n.count(download.LevelSuccess))
}

func TestBatch_RunReportsFailures(t *testing.T) {
	srv := siteServer(t)
	n := &notices{}
	a := testApp(t, n.notify)
	ctx := context.Background()

	entries, err := a.Plan(ctx, srv.URL+"/track/side-a\n"+srv.URL+"/track/broken", "bandcamp", plugin.Options{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	b := a.NewBatch()
	err = b.Run(ctx, entries, t.TempDir(), audioOnly())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")

	_, _, files, _ := b.Progress()
	assert.Equal(t, int32(1), files)
	assert.GreaterOrEqual(t, n.count(download.LevelError), 1)
}

func TestBatch_RunCancelled(t *testing.T) {
	srv := siteServer(t)
	a := testApp(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	entries, err := a.Plan(ctx, srv.URL+"/album/tape", "bandcamp", plugin.Options{})
	require.NoError(t, err)
	cancel()

	b := a.NewBatch()
	err = b.Run(ctx, entries, t.TempDir(), audioOnly())
	assert.ErrorIs(t, err, context.Canceled)

	_, _, files, _ := b.Progress()
	assert.Zero(t, files)
}

func TestWritePlaylist(t *testing.T) {
	srv := siteServer(t)
	a := testApp(t, nil)

	entries, err := a.Plan(context.Background(), srv.URL+"/album/tape", "bandcamp", plugin.Options{})
	require.NoError(t, err)

	out := t.TempDir()
	path, err := a.WritePlaylist(out, "Band: Tape", entries)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "Band_ Tape.m3u"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), srv.URL+"/track/side-b")
}
