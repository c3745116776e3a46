package model

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestMakeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"Hello World", "Hello_World"},
		{"Hello, World!", "Hello_World_"},
		{"a/b\\c:d", "a_b_c_d"},
		{"ünïcödé", "_n_c_d_"},
		{"multi   space", "multi_space"},
		{"under_score", "under_score"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MakeFileName(tt.input); got != tt.want {
				t.Errorf("MakeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputPrefix(t *testing.T) {
	got := OutputPrefix("/videos", "My Title")
	want := filepath.Join("/videos", "My_Title")
	if got != want {
		t.Errorf("OutputPrefix() = %q, want %q", got, want)
	}

	if got := OutputPrefix("/videos", "!!!"); got != filepath.Join("/videos", "media") {
		t.Errorf("OutputPrefix() for symbol-only title = %q", got)
	}

	long := strings.Repeat("a", 400)
	if got := filepath.Base(OutputPrefix("/videos", long)); len(got) > 180 {
		t.Errorf("OutputPrefix() name length = %d, want <= 180", len(got))
	}
}

func TestStream_LegPath(t *testing.T) {
	s := Stream{Container: "webm", Type: StreamAudio, Codec: "opus"}
	if got := s.LegPath("/tmp/x"); got != "/tmp/x.webm.audio.opus" {
		t.Errorf("LegPath() = %q", got)
	}

	combined := Stream{Container: "mp4", Type: StreamAudioVideo, Codec: "avc1"}
	if got := combined.LegPath("/tmp/x"); got != "/tmp/x.mp4.audio+video.avc1" {
		t.Errorf("LegPath() = %q", got)
	}
}

func TestStream_Segmented(t *testing.T) {
	tests := []struct {
		name string
		s    Stream
		want bool
	}{
		{"no range", Stream{}, false},
		{"empty key", Stream{Range: &RangeParam{}}, false},
		{"range", Stream{Range: &RangeParam{Key: "range", Format: "-"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Segmented(); got != tt.want {
				t.Errorf("Segmented() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStreamType(t *testing.T) {
	tests := []struct {
		input   string
		want    StreamType
		wantErr bool
	}{
		{"audio", StreamAudio, false},
		{"Video", StreamVideo, false},
		{" audio+video ", StreamAudioVideo, false},
		{"subtitle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStreamType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStreamType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStreamType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMediaItem_BestThumbnail(t *testing.T) {
	item := &MediaItem{}
	if _, ok := item.BestThumbnail(); ok {
		t.Error("BestThumbnail() should report false without thumbnails")
	}

	item.Thumbnails = []Thumbnail{
		{URL: "small", Width: 120, Height: 90},
		{URL: "large", Width: 1280, Height: 720},
		{URL: "unsized"},
	}
	best, ok := item.BestThumbnail()
	if !ok || best.URL != "large" {
		t.Errorf("BestThumbnail() = %+v, %v", best, ok)
	}

	if s := item.Summary(); s.ThumbnailURL != "large" {
		t.Errorf("Summary().ThumbnailURL = %q, want large", s.ThumbnailURL)
	}
}
