package audio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"

	"github.com/handiism/paletti/internal/model"
)

// ErrNotTaggable is returned by SaveTags for files other than MP3.
var ErrNotTaggable = errors.New("not an mp3 file")

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from the media item.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:  true,
//	    Artist:      TagModify,      // uploader
//	    Title:       TagModify,      // item title
//	    Year:        TagModify,      // publish year
//	    Lyrics:      TagModify,      // item description
//	    Comments:    TagModify,      // source page URL
//	    AlbumArtist: TagDoNotModify,
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text frames are modified.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) frame.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 (Album artist) frame.
	AlbumArtist TagEditAction

	// Year controls the TYER (Year) frame.
	Year TagEditAction

	// Date controls the TDRC (Recording time) frame (ID3v2.4).
	Date TagEditAction

	// Title controls the TIT2 (Title) frame.
	Title TagEditAction

	// Lyrics controls the USLT (Unsynchronized lyrics) frame.
	Lyrics TagEditAction

	// Comments controls the COMM (Comments) frame.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration: every frame is
// written from the media item.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Year:        TagModify,
		Date:        TagModify,
		Title:       TagModify,
		Lyrics:      TagModify,
		Comments:    TagModify,
	}
}

// Tagger writes ID3 tags to downloaded MP3 files.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	if err := tagger.SaveTags(outputPath, item, artworkJPEG); err != nil {
//	    log.Warn("tagging failed", zap.Error(err))
//	}
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes the metadata of item into the MP3 file at path and
// embeds artwork as the front cover when it is not nil.
func (t *Tagger) SaveTags(path string, item *model.MediaItem, artwork []byte) error {
	if !IsTaggable(path) {
		return ErrNotTaggable
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	if t.config.ModifyTags {
		t.updateTextFrames(tag, item)
	}

	if artwork != nil {
		updateArtwork(tag, artwork)
	}

	return tag.Save()
}

func (t *Tagger) updateTextFrames(tag *id3v2.Tag, item *model.MediaItem) {
	switch t.config.Artist {
	case TagEmpty:
		tag.SetArtist("")
	case TagModify:
		tag.SetArtist(item.Uploader)
	}

	switch t.config.Title {
	case TagEmpty:
		tag.SetTitle("")
	case TagModify:
		tag.SetTitle(item.Title)
	}

	switch t.config.AlbumArtist {
	case TagEmpty:
		tag.DeleteFrames("TPE2")
	case TagModify:
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, item.Uploader)
	}

	// Unknown dates leave the frames alone instead of writing year 1.
	published := !item.Published.IsZero()

	switch t.config.Year {
	case TagEmpty:
		tag.DeleteFrames("TYER")
	case TagModify:
		if published {
			tag.AddTextFrame("TYER", id3v2.EncodingUTF8, item.Published.Format("2006"))
		}
	}

	switch t.config.Date {
	case TagEmpty:
		tag.DeleteFrames("TDRC")
	case TagModify:
		if published {
			tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, item.Published.Format("2006-01-02"))
		}
	}

	lyricsID := tag.CommonID("Unsynchronised lyrics/text transcription")
	switch t.config.Lyrics {
	case TagEmpty:
		tag.DeleteFrames(lyricsID)
	case TagModify:
		if item.Description != "" {
			tag.DeleteFrames(lyricsID)
			tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
				Encoding: id3v2.EncodingUTF8,
				Language: "eng",
				Lyrics:   item.Description,
			})
		}
	}

	commentsID := tag.CommonID("Comments")
	switch t.config.Comments {
	case TagEmpty:
		tag.DeleteFrames(commentsID)
	case TagModify:
		if item.URL != "" {
			tag.DeleteFrames(commentsID)
			tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding:    id3v2.EncodingUTF8,
				Language:    "eng",
				Description: "source",
				Text:        item.URL,
			})
		}
	}
}

// updateArtwork replaces any attached picture with artwork as the front
// cover.
func updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}

// IsTaggable reports whether the file at path can carry ID3 tags.
func IsTaggable(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}
