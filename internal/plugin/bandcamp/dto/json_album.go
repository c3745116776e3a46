package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/handiism/paletti/internal/model"
)

const (
	artworkURLStart = "https://f4.bcbits.com/img/a"
	artworkURLEnd   = "_0.jpg"
)

// BandcampTime is a custom time type that handles Bandcamp's date format.
type BandcampTime struct {
	time.Time
}

// UnmarshalJSON parses Bandcamp's date format: "01 Jan 2023 00:00:00 GMT"
func (bt *BandcampTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		bt.Time = time.Time{}
		return nil
	}

	formats := []string{
		"02 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 MST",
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			bt.Time = t
			return nil
		}
	}

	return fmt.Errorf("unable to parse date: %s", s)
}

// JSONAlbum is the data-tralbum payload of an album or track page.
type JSONAlbum struct {
	AlbumData   *JSONAlbumData `json:"current"`
	ArtID       *int64         `json:"art_id"`
	Artist      string         `json:"artist"`
	ItemType    string         `json:"item_type"`
	URL         string         `json:"url"`
	ReleaseDate *BandcampTime  `json:"album_release_date"`
	Tracks      []JSONTrack    `json:"trackinfo"`
}

// JSONAlbumData contains album metadata.
type JSONAlbumData struct {
	ID          int64         `json:"id"`
	AlbumTitle  string        `json:"title"`
	About       string        `json:"about"`
	ReleaseDate *BandcampTime `json:"release_date"`
	PublishDate *BandcampTime `json:"publish_date"`
}

// IsTrack reports whether the payload came from a single track page.
func (ja *JSONAlbum) IsTrack() bool {
	return ja.ItemType == "track"
}

// ArtworkURL returns the full size cover URL, or "" when the page has none.
func (ja *JSONAlbum) ArtworkURL() string {
	if ja.ArtID == nil {
		return ""
	}
	return fmt.Sprintf("%s%010d%s", artworkURLStart, *ja.ArtID, artworkURLEnd)
}

func (ja *JSONAlbum) releaseDate() time.Time {
	switch {
	case ja.ReleaseDate != nil:
		return ja.ReleaseDate.Time
	case ja.AlbumData != nil && ja.AlbumData.ReleaseDate != nil:
		return ja.AlbumData.ReleaseDate.Time
	case ja.AlbumData != nil && ja.AlbumData.PublishDate != nil:
		return ja.AlbumData.PublishDate.Time
	}
	return time.Time{}
}

// ToMediaItem converts the payload into a media item.
//
// A track page yields one item carrying the track's MP3 stream. An album
// page yields an item whose Entries list the tracks, resolved against
// pageURL; tracks without a playable file are left out.
func (ja *JSONAlbum) ToMediaItem(pageURL string) *model.MediaItem {
	item := &model.MediaItem{
		URL:       pageURL,
		Uploader:  ja.Artist,
		Published: ja.releaseDate(),
	}
	if ja.AlbumData != nil {
		item.ID = strconv.FormatInt(ja.AlbumData.ID, 10)
		item.Title = ja.AlbumData.AlbumTitle
		item.Description = ja.AlbumData.About
	}

	artwork := ja.ArtworkURL()
	if artwork != "" {
		item.Thumbnails = []model.Thumbnail{{URL: artwork}}
	}

	if ja.IsTrack() {
		for _, jt := range ja.Tracks {
			if jt.File == nil {
				continue
			}
			item.Duration = jt.Duration
			if jt.Lyrics != "" {
				item.Description = jt.Lyrics
			}
			if item.Title == "" {
				item.Title = jt.Title
			}
			item.Streams = []model.Stream{jt.Stream()}
			break
		}
		return item
	}

	base := siteRoot(pageURL)
	for _, jt := range ja.Tracks {
		if jt.File == nil {
			continue
		}
		entry := model.Summary{
			ID:       strconv.FormatInt(jt.ID, 10),
			Title:    jt.Title,
			Uploader: ja.Artist,
			Duration: jt.Duration,
		}
		if jt.TitleLink != "" {
			entry.URL = base + jt.TitleLink
		}
		entry.ThumbnailURL = artwork
		item.Duration += jt.Duration
		item.Entries = append(item.Entries, entry)
	}

	return item
}

// siteRoot returns the scheme and host part of a page URL.
func siteRoot(pageURL string) string {
	i := strings.Index(pageURL, "://")
	if i == -1 {
		return ""
	}
	rest := pageURL[i+3:]
	if j := strings.IndexByte(rest, '/'); j != -1 {
		return pageURL[:i+3+j]
	}
	return pageURL
}
