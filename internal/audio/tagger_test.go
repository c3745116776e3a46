package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/paletti/internal/model"
)

// writeFrames writes an untagged file of repeated MPEG frame headers. It
// has to be longer than an ID3v2 header for the tag reader to accept it.
func writeFrames(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 256), 0o644))
}

func TestTagger_SaveTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	writeFrames(t, path)

	item := &model.MediaItem{
		URL:         "https://a.bandcamp.com/track/song",
		Title:       "Song",
		Uploader:    "Artist",
		Description: "la la la",
		Published:   time.Date(2021, 5, 4, 0, 0, 0, 0, time.UTC),
	}
	art := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	require.NoError(t, NewTagger(nil).SaveTags(path, item, art))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	assert.Equal(t, "Song", tag.Title())
	assert.Equal(t, "Artist", tag.Artist())
	assert.Equal(t, "Artist", tag.GetTextFrame("TPE2").Text)
	assert.Equal(t, "2021", tag.GetTextFrame("TYER").Text)

	pics := tag.GetFrames(tag.CommonID("Attached picture"))
	require.Len(t, pics, 1)
	assert.Equal(t, art, pics[0].(id3v2.PictureFrame).Picture)

	comments := tag.GetFrames(tag.CommonID("Comments"))
	require.Len(t, comments, 1)
	assert.Equal(t, item.URL, comments[0].(id3v2.CommentFrame).Text)

	// The audio data follows the tag untouched.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(raw, bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 256)))
}

func TestTagger_RespectsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	writeFrames(t, path)

	cfg := DefaultTagConfig()
	cfg.Title = TagDoNotModify
	cfg.Artist = TagEmpty
	require.NoError(t, NewTagger(cfg).SaveTags(path, &model.MediaItem{Title: "ignored", Uploader: "ignored"}, nil))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	assert.Empty(t, tag.Title())
	assert.Empty(t, tag.Artist())
	assert.Empty(t, tag.GetFrames("TYER"), "zero publish date writes no year")
}

func TestTagger_RejectsOtherFormats(t *testing.T) {
	err := NewTagger(nil).SaveTags(filepath.Join(t.TempDir(), "clip.webm"), &model.MediaItem{}, nil)
	assert.ErrorIs(t, err, ErrNotTaggable)

	assert.True(t, IsTaggable("/x/a.MP3"))
	assert.False(t, IsTaggable("/x/a.opus"))
}
