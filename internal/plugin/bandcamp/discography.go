package bandcamp

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/handiism/paletti/internal/model"
)

// ErrNoAlbumFound is returned when no album or track URLs can be found on a page.
var ErrNoAlbumFound = errors.New("no album found on page")

var (
	releaseLink = regexp.MustCompile(`(?P<url>/(album|track)/.+?)("|&quot;)`)
	albumHref   = regexp.MustCompile(`href="(?P<url>/album/.+?)"`)
	slugWords   = strings.NewReplacer("-", " ")
)

// AlbumURLs extracts the album and track paths listed on an artist's music
// page, sorted and without duplicates:
//
//	/album/my-album
//	/track/my-track
//
// Artists with a single album often have their music page redirect to the
// album page. That page is recognized by its "discography" div and yields
// exactly one album path.
func AlbumURLs(musicPageHTML string) ([]string, error) {
	if isSingleAlbumArtist(musicPageHTML) {
		albumURL, err := singleAlbumURL(musicPageHTML)
		if err != nil {
			return nil, err
		}
		return []string{albumURL}, nil
	}

	urls := uniqueMatches(releaseLink, musicPageHTML)
	if len(urls) == 0 {
		return nil, ErrNoAlbumFound
	}
	return urls, nil
}

// Releases turns the paths found by AlbumURLs into result entries rooted
// at base. Titles are derived from the URL slug.
func Releases(base, musicPageHTML string) ([]model.Summary, error) {
	paths, err := AlbumURLs(musicPageHTML)
	if err != nil {
		return nil, err
	}

	base = strings.TrimSuffix(base, "/")
	out := make([]model.Summary, 0, len(paths))
	for _, p := range paths {
		slug := p[strings.LastIndexByte(p, '/')+1:]
		out = append(out, model.Summary{
			ID:    p,
			URL:   base + p,
			Title: slugWords.Replace(slug),
		})
	}
	return out, nil
}

func isSingleAlbumArtist(html string) bool {
	return strings.Contains(html, `div id="discography"`)
}

func singleAlbumURL(html string) (string, error) {
	urls := uniqueMatches(albumHref, html)
	switch len(urls) {
	case 0:
		return "", ErrNoAlbumFound
	case 1:
		return urls[0], nil
	}
	return "", errors.New("found multiple album URLs, expected exactly one")
}

func uniqueMatches(re *regexp.Regexp, s string) []string {
	set := make(map[string]struct{})
	for _, match := range re.FindAllStringSubmatch(s, -1) {
		if len(match) > 1 {
			set[match[1]] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
