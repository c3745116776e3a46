package model

import (
	"path/filepath"
	"regexp"
	"time"
)

// MediaItem is the result of one metadata lookup.
//
// MediaItem is created once per successful plugin call and cached by
// source URL. Callers share the cached pointer and must not mutate it.
type MediaItem struct {
	// ID is the site's identifier for the item.
	ID string

	// URL is the page the metadata was fetched from.
	URL string

	// Title is the display title, used to build output file names.
	Title string

	// Uploader is the artist, channel or account that published the item.
	Uploader string

	// Description holds free text such as lyrics or a summary.
	Description string

	// Duration is the play length in seconds.
	Duration float64

	// Published is the release or upload date, zero if unknown.
	Published time.Time

	// Streams lists every retrievable encoding in plugin order.
	Streams []Stream

	// Thumbnails lists available preview images.
	Thumbnails []Thumbnail

	// Entries is filled for collection pages (albums, playlists).
	Entries []Summary
}

// HasThumbnail returns true if at least one thumbnail is known.
func (m *MediaItem) HasThumbnail() bool {
	return len(m.Thumbnails) > 0
}

// BestThumbnail returns the thumbnail with the largest pixel area.
// Thumbnails without dimensions rank below sized ones, earliest first.
func (m *MediaItem) BestThumbnail() (Thumbnail, bool) {
	if len(m.Thumbnails) == 0 {
		return Thumbnail{}, false
	}
	best := m.Thumbnails[0]
	for _, t := range m.Thumbnails[1:] {
		if t.Width*t.Height > best.Width*best.Height {
			best = t
		}
	}
	return best, true
}

// Summary returns the short form of the item, as used in result lists.
func (m *MediaItem) Summary() Summary {
	s := Summary{
		ID:       m.ID,
		URL:      m.URL,
		Title:    m.Title,
		Uploader: m.Uploader,
		Duration: m.Duration,
	}
	if t, ok := m.BestThumbnail(); ok {
		s.ThumbnailURL = t.URL
	}
	return s
}

// Summary is one entry of a search or playlist result.
type Summary struct {
	ID           string
	URL          string
	Title        string
	Uploader     string
	Duration     float64
	ThumbnailURL string
}

// Thumbnail is a preview image of a media item.
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// InputKind classifies free-form user input.
type InputKind string

const (
	KindMedia       InputKind = "media"
	KindSearchQuery InputKind = "search_query"
	KindPlaylist    InputKind = "playlist"
	KindChannel     InputKind = "channel"
	KindUser        InputKind = "user"
)

var unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// MakeFileName turns a title into a file name made only of ASCII letters,
// digits and underscores. Every run of other characters becomes one "_".
//
// Example:
//
//	MakeFileName("Hello, World! (live)") // Returns "Hello_World_live_"
func MakeFileName(title string) string {
	return unsafeTitleChars.ReplaceAllString(title, "_")
}

// OutputPrefix returns the extension-less output path for a title inside
// folder. Leg files and the merged output are derived from it.
//
// An empty title falls back to "media".
func OutputPrefix(folder, title string) string {
	name := MakeFileName(title)
	if name == "" || name == "_" {
		name = "media"
	}

	// Keep the final path below MAX_PATH with room for leg suffixes.
	const maxName = 180
	if len(name) > maxName {
		name = name[:maxName]
	}
	return filepath.Join(folder, name)
}
