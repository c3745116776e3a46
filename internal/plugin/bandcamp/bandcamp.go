package bandcamp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	phttp "github.com/handiism/paletti/internal/http"
	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin"
)

// Name is the registry name of the plugin.
const Name = "bandcamp"

// Handle returns the static registry entry for the plugin.
func Handle(deps plugin.Deps) plugin.Handle {
	return plugin.Handle{
		Name:       Name,
		Hosts:      []string{"bandcamp.com"},
		Capability: plugin.CapabilityAudio,
		Plugin:     newPlugin(deps),
	}
}

// New is the plugin.Factory for Bandcamp.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.HTTP == nil {
		return nil, fmt.Errorf("bandcamp: no HTTP client")
	}
	return newPlugin(deps), nil
}

// Plugin crawls Bandcamp artist, album and track pages.
type Plugin struct {
	client *phttp.Client
	log    *zap.Logger
}

func newPlugin(deps plugin.Deps) *Plugin {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Plugin{client: deps.HTTP, log: log.Named(Name)}
}

// Metadata fetches a track or album page.
func (p *Plugin) Metadata(ctx context.Context, pageURL string) (*model.MediaItem, error) {
	page, err := p.client.GetString(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	item, err := ParsePage(pageURL, page)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	p.log.Debug("parsed page",
		zap.String("url", pageURL),
		zap.String("title", item.Title),
		zap.Int("streams", len(item.Streams)),
		zap.Int("entries", len(item.Entries)))
	return item, nil
}

// Search is not offered by the site without an API key.
func (p *Plugin) Search(ctx context.Context, query string, opts plugin.Options) ([]model.Summary, error) {
	return nil, fmt.Errorf("bandcamp search: %w", plugin.ErrNotImplemented)
}

// Playlist lists the tracks of an album page or the releases of an
// artist page.
func (p *Plugin) Playlist(ctx context.Context, pageURL string, opts plugin.Options) ([]model.Summary, error) {
	var entries []model.Summary

	switch p.Classify(pageURL) {
	case model.KindPlaylist:
		item, err := p.Metadata(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		entries = item.Entries

	case model.KindChannel:
		root, err := artistRoot(pageURL)
		if err != nil {
			return nil, err
		}
		page, err := p.client.GetString(ctx, root+"/music")
		if err != nil {
			return nil, fmt.Errorf("fetch discography: %w", err)
		}
		entries, err = Releases(root, page)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%s is not an album or artist page: %w", pageURL, plugin.ErrNotImplemented)
	}

	return paginate(entries, opts), nil
}

// Classify maps Bandcamp URLs onto input kinds: album pages are playlists
// and artist pages are channels.
func (p *Plugin) Classify(input string) model.InputKind {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return model.KindSearchQuery
	}

	path := strings.TrimSuffix(u.Path, "/")
	switch {
	case strings.HasPrefix(path, "/album/"):
		return model.KindPlaylist
	case path == "" || path == "/music":
		return model.KindChannel
	default:
		return model.KindMedia
	}
}

func artistRoot(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid artist URL: %w", err)
	}
	return u.Scheme + "://" + u.Host, nil
}

// paginate applies Options.Page and Options.Limit to a full result list.
func paginate(entries []model.Summary, opts plugin.Options) []model.Summary {
	if opts.Limit <= 0 {
		return entries
	}

	start := 0
	if opts.Page > 1 {
		start = (opts.Page - 1) * opts.Limit
	}
	if start >= len(entries) {
		return nil
	}
	end := min(start+opts.Limit, len(entries))
	return entries[start:end]
}
