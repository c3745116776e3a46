// Package app wires the settings into a ready-to-use dispatcher.
package app

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/handiism/paletti/internal/audio"
	"github.com/handiism/paletti/internal/cache"
	"github.com/handiism/paletti/internal/config"
	"github.com/handiism/paletti/internal/dispatch"
	"github.com/handiism/paletti/internal/download"
	phttp "github.com/handiism/paletti/internal/http"
	ioutils "github.com/handiism/paletti/internal/io"
	"github.com/handiism/paletti/internal/merge"
	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin"
	"github.com/handiism/paletti/internal/plugin/bandcamp"
)

// Factories returns the compiled plugins by name. Manifests found in the
// plugins directory refer to these names.
func Factories() map[string]plugin.Factory {
	return map[string]plugin.Factory{
		bandcamp.Name: bandcamp.New,
	}
}

// App holds the long-lived components of one process.
type App struct {
	Settings   *config.Settings
	Log        *zap.Logger
	HTTP       *phttp.Client
	Registry   *plugin.Registry
	Cache      *cache.MetadataCache
	Fetcher    *download.Fetcher
	Dispatcher *dispatch.Dispatcher
	Playlists  *audio.PlaylistCreator

	playlistFormat audio.PlaylistFormat
	notify         download.Notifier
}

// New validates settings and builds every component from them. notify
// receives user-facing notices and may be nil.
func New(settings *config.Settings, log *zap.Logger, notify download.Notifier) (*App, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	proxy, err := proxyFunc(settings)
	if err != nil {
		return nil, err
	}

	client := phttp.NewClient(
		phttp.WithProxy(proxy),
		phttp.WithUserAgent(settings.UserAgent),
		phttp.WithTimeout(time.Duration(settings.HTTPTimeout)),
		phttp.WithRateLimit(settings.BandwidthLimit),
	)

	deps := plugin.Deps{HTTP: client, Log: log}
	registry := plugin.NewRegistry(loader(settings, deps), log.Named("plugins"))
	metadata := cache.New(log.Named("cache"))
	fetcher := download.NewFetcher(client, settings.FetcherConfig(), log.Named("fetch"))

	opts := []dispatch.Option{
		dispatch.WithLogger(log.Named("dispatch")),
		dispatch.WithNotifier(notify),
		dispatch.WithHTTPClient(client),
		dispatch.WithThumbnails(
			ioutils.NewImageService(settings.ThumbnailJPEGQuality),
			settings.ThumbnailMaxSize,
			settings.SaveThumbnail,
		),
	}
	if settings.Merge {
		opts = append(opts, dispatch.WithMerger(merge.New(settings.FFmpegPath, log.Named("merge"))))
	}
	if settings.ModifyTags {
		opts = append(opts, dispatch.WithTagger(audio.NewTagger(audio.DefaultTagConfig()), settings.ThumbnailInTags))
	}

	format, err := audio.ParsePlaylistFormat(settings.PlaylistFormat)
	if err != nil {
		return nil, err
	}

	return &App{
		Settings:   settings,
		Log:        log,
		HTTP:       client,
		Registry:   registry,
		Cache:      metadata,
		Fetcher:    fetcher,
		Dispatcher: dispatch.New(registry, metadata, fetcher, opts...),
		Playlists:  audio.NewPlaylistCreator(format, settings.M3UExtended),

		playlistFormat: format,
		notify:         notify,
	}, nil
}

// WritePlaylist saves entries as a playlist named after title in folder
// and returns the path written.
func (a *App) WritePlaylist(folder, title string, entries []model.Summary) (string, error) {
	name := ioutils.SanitizeFileName(title)
	if name == "" {
		name = "playlist"
	}
	path := filepath.Join(folder, name+a.playlistFormat.Ext())
	if err := ioutils.WriteFile(path, []byte(a.Playlists.CreatePlaylist(title, entries))); err != nil {
		return "", fmt.Errorf("write playlist: %w", err)
	}
	return path, nil
}

// loader returns the manifest scan of the plugins directory when one is
// configured, and the compiled table otherwise.
func loader(settings *config.Settings, deps plugin.Deps) plugin.Loader {
	if settings.PluginsPath != "" {
		return plugin.DirLoader(settings.PluginsPath, Factories(), deps)
	}
	return plugin.Static(bandcamp.Handle(deps))
}

func proxyFunc(settings *config.Settings) (func(*http.Request) (*url.URL, error), error) {
	switch strings.ToLower(settings.ProxyType) {
	case "none":
		return nil, nil
	case "manual":
		host := settings.ProxyAddress
		if settings.ProxyPort > 0 {
			host = net.JoinHostPort(host, strconv.Itoa(settings.ProxyPort))
		}
		u, err := url.Parse("http://" + host)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy address: %w", err)
		}
		return http.ProxyURL(u), nil
	default:
		return http.ProxyFromEnvironment, nil
	}
}
