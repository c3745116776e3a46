package bandcamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin/bandcamp/dto"
)

// ErrNoPageData is returned when a page carries no data-tralbum payload.
var ErrNoPageData = errors.New("could not find album data in HTML")

var (
	concatURL = regexp.MustCompile(`(url: ".+)" \+ "(.+",)`)
	htmlTag   = regexp.MustCompile(`<[^>]*>`)
)

// ParsePage extracts the media item from a Bandcamp album or track page.
//
// The page embeds its data as JSON inside a data-tralbum attribute. The
// payload is unescaped, repaired and decoded; lyrics missing from the
// JSON are taken from the lyrics rows of the HTML.
//
// Example:
//
//	item, err := bandcamp.ParsePage("https://artist.bandcamp.com/track/song", page)
//	if err != nil {
//	    return fmt.Errorf("parse track: %w", err)
//	}
//	fmt.Println(item.Title, item.Streams[0].URL)
func ParsePage(pageURL, htmlContent string) (*model.MediaItem, error) {
	albumData, err := extractAlbumData(htmlContent)
	if err != nil {
		return nil, err
	}

	var jsonAlbum dto.JSONAlbum
	if err := json.Unmarshal([]byte(fixJSON(albumData)), &jsonAlbum); err != nil {
		return nil, fmt.Errorf("failed to parse album JSON: %w", err)
	}

	if jsonAlbum.IsTrack() {
		for i := range jsonAlbum.Tracks {
			if jsonAlbum.Tracks[i].Lyrics == "" {
				jsonAlbum.Tracks[i].Lyrics = extractLyrics(htmlContent, trackNumber(&jsonAlbum.Tracks[i]))
			}
		}
	}

	return jsonAlbum.ToMediaItem(pageURL), nil
}

// extractAlbumData extracts the data-tralbum JSON string from HTML.
//
// The JSON sits in an HTML attribute, so quotes arrive as &quot; and must
// be unescaped:
//
//	<script ... data-tralbum="{...JSON...}">
func extractAlbumData(htmlContent string) (string, error) {
	const startString = `data-tralbum="{`
	const stopString = `}"`

	startIndex := strings.Index(htmlContent, startString)
	if startIndex == -1 {
		return "", ErrNoPageData
	}

	startIndex += len(startString) - 1
	remaining := htmlContent[startIndex:]

	endIndex := strings.Index(remaining, stopString)
	if endIndex == -1 {
		return "", fmt.Errorf("could not find end of album data")
	}

	return html.UnescapeString(remaining[:endIndex+1]), nil
}

// fixJSON removes JavaScript string concatenation that some pages leave in
// the payload:
//
//	url: "http://example.bandcamp.com" + "/album/name",
func fixJSON(albumData string) string {
	return concatURL.ReplaceAllString(albumData, "${1}${2}")
}

// extractLyrics returns the text of the lyrics_row_<number> element, or ""
// when the page has none.
func extractLyrics(htmlContent string, number int) string {
	startIdx := strings.Index(htmlContent, fmt.Sprintf(`id="lyrics_row_%d"`, number))
	if startIdx == -1 {
		return ""
	}

	remaining := htmlContent[startIdx:]
	contentStart := strings.Index(remaining, ">")
	if contentStart == -1 {
		return ""
	}
	contentEnd := strings.Index(remaining[contentStart:], "</div>")
	if contentEnd == -1 {
		return ""
	}

	lyrics := htmlTag.ReplaceAllString(remaining[contentStart+1:contentStart+contentEnd], "")
	return strings.TrimSpace(html.UnescapeString(lyrics))
}

func trackNumber(jt *dto.JSONTrack) int {
	if jt.Number == nil {
		return 1
	}
	return *jt.Number
}
