package dto

import (
	"strings"

	"github.com/handiism/paletti/internal/model"
)

// JSONTrack represents a track from Bandcamp's JSON data.
type JSONTrack struct {
	ID        int64        `json:"id"`
	Duration  float64      `json:"duration"`
	File      *JSONMp3File `json:"file"`
	Lyrics    string       `json:"lyrics"`
	Number    *int         `json:"track_num"`
	Title     string       `json:"title"`
	TitleLink string       `json:"title_link"`
}

// JSONMp3File represents the MP3 file info.
type JSONMp3File struct {
	URL string `json:"mp3-128"`
}

// Stream returns the track's only encoding, a 128 kbit/s MP3. The caller
// must check that File is set.
func (jt *JSONTrack) Stream() model.Stream {
	// Protocol-relative links are common on older pages.
	mp3URL := jt.File.URL
	if strings.HasPrefix(mp3URL, "//") {
		mp3URL = "https:" + mp3URL
	}

	return model.Stream{
		URL:         mp3URL,
		Container:   "mp3",
		Codec:       "mp3",
		Type:        model.StreamAudio,
		Quality:     "128k",
		QualityRank: 128,
	}
}
