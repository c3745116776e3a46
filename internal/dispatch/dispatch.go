package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/handiism/paletti/internal/audio"
	"github.com/handiism/paletti/internal/cache"
	"github.com/handiism/paletti/internal/download"
	phttp "github.com/handiism/paletti/internal/http"
	ioutils "github.com/handiism/paletti/internal/io"
	"github.com/handiism/paletti/internal/merge"
	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin"
	"github.com/handiism/paletti/internal/selector"
)

var (
	// ErrNoAudioStream is returned by Download when only audio was asked
	// for and the item has no audio-only stream.
	ErrNoAudioStream = errors.New("no audio-only stream available")

	// ErrNoThumbnail is returned by Thumbnail for items without one.
	ErrNoThumbnail = errors.New("media item has no thumbnail")
)

// Merger combines the leg files of a finished transfer.
type Merger interface {
	Merge(ctx context.Context, prefix string, audio, video *merge.Input) (string, error)
}

// Dispatcher is the entry point of the engine. It routes every request to
// the plugin owning the URL, caches metadata, selects streams and builds
// transfers.
//
// A Dispatcher is safe for concurrent use.
//
// Example:
//
//	d := dispatch.New(registry, cache.New(log), fetcher, dispatch.WithNotifier(notify))
//	t, err := d.Download(ctx, url, "/videos", dispatch.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	t.Start(ctx)
//	err = t.Wait()
type Dispatcher struct {
	registry *plugin.Registry
	cache    *cache.MetadataCache
	fetcher  *download.Fetcher
	client   *phttp.Client
	merger   Merger
	tagger   *audio.Tagger
	images   *ioutils.ImageService
	notify   download.Notifier
	log      *zap.Logger

	thumbMaxSize  int
	saveThumbnail bool
	embedArtwork  bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotifier sets the receiver of user-facing notices.
func WithNotifier(n download.Notifier) Option {
	return func(d *Dispatcher) { d.notify = n }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithHTTPClient sets the client used for thumbnails.
func WithHTTPClient(c *phttp.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithMerger enables merging of finished transfers.
func WithMerger(m Merger) Option {
	return func(d *Dispatcher) { d.merger = m }
}

// WithTagger enables ID3 tagging of MP3 outputs. With embedArtwork the
// best thumbnail is attached as cover art.
func WithTagger(t *audio.Tagger, embedArtwork bool) Option {
	return func(d *Dispatcher) {
		d.tagger = t
		d.embedArtwork = embedArtwork
	}
}

// WithThumbnails configures thumbnail processing. Images are scaled to fit
// maxSize x maxSize (0 keeps the original size). With save, every finished
// download also writes <prefix>.jpg.
func WithThumbnails(svc *ioutils.ImageService, maxSize int, save bool) Option {
	return func(d *Dispatcher) {
		if svc != nil {
			d.images = svc
		}
		d.thumbMaxSize = maxSize
		d.saveThumbnail = save
	}
}

// New creates a dispatcher over the given registry, cache and fetcher.
func New(registry *plugin.Registry, c *cache.MetadataCache, f *download.Fetcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		cache:    c,
		fetcher:  f,
		client:   phttp.NewClient(),
		images:   ioutils.NewImageService(0),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Metadata returns the media item behind url, from the cache when it has
// been fetched before.
func (d *Dispatcher) Metadata(ctx context.Context, url string) (*model.MediaItem, error) {
	h, err := d.registry.Resolve(url)
	if err != nil {
		return nil, err
	}
	return d.cache.GetOrFetch(ctx, url, h.Plugin.Metadata)
}

// Search runs query on the plugin named by pluginOrURL. An empty query
// searches for pluginOrURL itself.
func (d *Dispatcher) Search(ctx context.Context, pluginOrURL, query string, opts plugin.Options) ([]model.Summary, error) {
	h, err := d.registry.Resolve(pluginOrURL)
	if err != nil {
		return nil, err
	}
	if query == "" {
		query = pluginOrURL
	}
	return h.Plugin.Search(ctx, query, opts)
}

// Playlist lists the entries of a collection page.
func (d *Dispatcher) Playlist(ctx context.Context, url string, opts plugin.Options) ([]model.Summary, error) {
	h, err := d.registry.Resolve(url)
	if err != nil {
		return nil, err
	}
	return h.Plugin.Playlist(ctx, url, opts)
}

// Browse classifies input with the plugin named by pluginOrURL and runs
// the matching request: a search for free text, a playlist listing for
// collection pages and a one-entry result for single media pages.
// Channel and user pages are served by plugins through Playlist.
func (d *Dispatcher) Browse(ctx context.Context, pluginOrURL, input string, opts plugin.Options) (model.InputKind, []model.Summary, error) {
	h, err := d.registry.Resolve(pluginOrURL)
	if err != nil {
		return "", nil, err
	}

	kind := h.Plugin.Classify(input)
	d.log.Debug("browse", zap.String("plugin", h.Name), zap.String("input", input), zap.String("kind", string(kind)))

	var entries []model.Summary
	switch kind {
	case model.KindSearchQuery:
		entries, err = h.Plugin.Search(ctx, input, opts)
	case model.KindPlaylist, model.KindChannel, model.KindUser:
		entries, err = h.Plugin.Playlist(ctx, input, opts)
	default:
		var item *model.MediaItem
		item, err = d.cache.GetOrFetch(ctx, input, h.Plugin.Metadata)
		if err == nil {
			entries = []model.Summary{item.Summary()}
		}
	}
	return kind, entries, err
}

// Streams selects the audio and video streams of url for the requested
// quality and container. Either result may be nil, never both.
//
// When the chosen video stream already carries audio, no audio stream is
// returned.
func (d *Dispatcher) Streams(ctx context.Context, url, quality, container string) (audioStream, videoStream *model.Stream, err error) {
	item, err := d.Metadata(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	audioStream, videoStream, err = d.pick(item, quality, container)
	if err != nil {
		return nil, nil, err
	}
	if videoStream != nil && videoStream.Type == model.StreamAudioVideo {
		audioStream = nil
	}
	return audioStream, videoStream, nil
}

func (d *Dispatcher) pick(item *model.MediaItem, quality, container string) (*model.Stream, *model.Stream, error) {
	a, v, err := selector.Pair(item.Streams, quality, container)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", item.Title, err)
	}

	var audioStream, videoStream *model.Stream
	if a != nil {
		audioStream = &a.Stream
		d.reportFallbacks(model.StreamAudio, a, quality, container)
	}
	if v != nil {
		videoStream = &v.Stream
		d.reportFallbacks(model.StreamVideo, v, quality, container)
	}
	return audioStream, videoStream, nil
}

func (d *Dispatcher) reportFallbacks(typ model.StreamType, c *selector.Choice, quality, container string) {
	if c.ContainerFallback && container != "" {
		d.notify.Notify(download.LevelVerbose,
			fmt.Sprintf("No %s stream in %s, using %s", typ, container, c.Stream.Container))
	}
	if c.QualityFallback && !strings.EqualFold(quality, selector.QualityBest) {
		d.notify.Notify(download.LevelVerbose,
			fmt.Sprintf("No %s stream at %s, using %s", typ, quality, c.Stream.Quality))
	}
}
