package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	phttp "github.com/handiism/paletti/internal/http"
	"github.com/handiism/paletti/internal/model"
)

// ErrNotImplemented is returned by plugins for capabilities they lack.
var ErrNotImplemented = errors.New("not implemented by plugin")

// Plugin is the capability a site crawler provides.
type Plugin interface {
	// Metadata fetches the media item behind a page URL.
	Metadata(ctx context.Context, url string) (*model.MediaItem, error)

	// Search runs a site search.
	Search(ctx context.Context, query string, opts Options) ([]model.Summary, error)

	// Playlist lists the entries of a collection page.
	Playlist(ctx context.Context, url string, opts Options) ([]model.Summary, error)

	// Classify tells what kind of request the user input is.
	Classify(input string) model.InputKind
}

// SubtitleFetcher is implemented by plugins that can save subtitles next
// to a download. It returns the paths written.
type SubtitleFetcher interface {
	Subtitles(ctx context.Context, item *model.MediaItem, prefix string) ([]string, error)
}

// Options carries optional search and playlist parameters.
type Options struct {
	// Limit caps the number of results; zero means the plugin default.
	Limit int

	// Page selects a result page, starting at 1.
	Page int

	// Extra holds plugin-specific settings.
	Extra map[string]string
}

// Capability describes how a site delivers its streams.
type Capability string

const (
	CapabilityVideo      Capability = "video"
	CapabilityAudioVideo Capability = "audio+video"
	CapabilitySeparate   Capability = "separate"
	CapabilityAudio      Capability = "audio"
)

// ParseCapability converts a manifest value to a Capability. The legacy
// spelling "seperate" is accepted.
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "video":
		return CapabilityVideo, nil
	case "audio+video":
		return CapabilityAudioVideo, nil
	case "separate", "seperate", "seperate-audio-video", "separate-audio-video":
		return CapabilitySeparate, nil
	case "audio":
		return CapabilityAudio, nil
	}
	return "", fmt.Errorf("unknown stream capability %q", s)
}

// Handle is a registered plugin with its routing data.
type Handle struct {
	Name       string
	Hosts      []string
	Capability Capability
	Plugin     Plugin
}

// MatchesHost reports whether hostname equals one of the handle's hosts or
// is a subdomain of one.
func (h *Handle) MatchesHost(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	for _, host := range h.Hosts {
		host = strings.ToLower(host)
		if hostname == host || strings.HasSuffix(hostname, "."+host) {
			return true
		}
	}
	return false
}

// Deps are the shared services handed to plugin factories.
type Deps struct {
	HTTP *phttp.Client
	Log  *zap.Logger
}

// Factory builds a plugin instance. Compiled plugins register one under
// their name so manifests can refer to them.
type Factory func(deps Deps) (Plugin, error)

// ClassifyInput applies the common input rules: no scheme is a search
// query, "/playlist" is a playlist, "/channel/..." a channel, "/user/..." a
// user, anything else a single media page.
//
// Example:
//
//	plugin.ClassifyInput("lofi beats")                          // KindSearchQuery
//	plugin.ClassifyInput("https://example.com/playlist?list=1") // KindPlaylist
func ClassifyInput(input string) model.InputKind {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return model.KindSearchQuery
	}

	switch {
	case u.Path == "/playlist":
		return model.KindPlaylist
	case strings.HasPrefix(u.Path, "/channel/"):
		return model.KindChannel
	case strings.HasPrefix(u.Path, "/user/"):
		return model.KindUser
	default:
		return model.KindMedia
	}
}

// hostname returns the host of input if it parses as an absolute URL.
func hostname(input string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Hostname(), true
}
