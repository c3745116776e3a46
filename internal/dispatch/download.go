package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/handiism/paletti/internal/audio"
	"github.com/handiism/paletti/internal/download"
	ioutils "github.com/handiism/paletti/internal/io"
	"github.com/handiism/paletti/internal/merge"
	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin"
	"github.com/handiism/paletti/internal/selector"
)

// Options selects what Download fetches.
type Options struct {
	Audio     bool
	Video     bool
	Subtitles bool
	Quality   string
	Container string
}

// DefaultOptions downloads audio and video at the best quality in any
// container.
func DefaultOptions() Options {
	return Options{
		Audio:   true,
		Video:   true,
		Quality: selector.QualityBest,
	}
}

// Download prepares the transfer of url into folder. The returned transfer
// is idle; the caller starts it.
//
// With Video off, only an audio-only stream is fetched; when the item has
// none a warning notice is sent and ErrNoAudioStream returned. With Audio
// off the audio leg is dropped and a video stream is required. A combined
// audio+video stream is fetched alone. Subtitles are fetched synchronously
// when asked for and the plugin supports them; failing to do so only warns.
//
// When the transfer finishes, the legs are merged (if a Merger is set),
// MP3 outputs are tagged (if a Tagger is set) and the thumbnail is saved
// (if enabled). Post-processing problems are reported as notices.
func (d *Dispatcher) Download(ctx context.Context, url, folder string, opts Options) (*download.Transfer, error) {
	h, err := d.registry.Resolve(url)
	if err != nil {
		return nil, err
	}
	item, err := d.cache.GetOrFetch(ctx, url, h.Plugin.Metadata)
	if err != nil {
		return nil, err
	}

	audioStream, videoStream, err := d.pick(item, opts.Quality, opts.Container)
	if err != nil {
		return nil, err
	}

	switch {
	case !opts.Video:
		if audioStream == nil {
			d.notify.Notify(download.LevelWarning, fmt.Sprintf("%s has no audio-only stream; nothing downloaded", item.Title))
			return nil, ErrNoAudioStream
		}
		videoStream = nil
	case videoStream == nil:
		if !opts.Audio {
			return nil, selector.ErrNoAcceptableStream
		}
	case videoStream.Type == model.StreamAudioVideo || !opts.Audio:
		// A combined stream carries its own audio.
		audioStream = nil
	}
	if audioStream == nil && videoStream == nil {
		return nil, selector.ErrNoAcceptableStream
	}

	if err := ioutils.EnsureDir(folder); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}
	prefix := model.OutputPrefix(folder, item.Title)

	if opts.Subtitles {
		d.fetchSubtitles(ctx, h, item, prefix)
	}

	t, err := download.NewTransfer(ctx, d.fetcher, prefix, []*model.Stream{audioStream, videoStream}, func(prefix string) {
		d.finish(item, prefix, audioStream, videoStream)
	})
	if err != nil {
		return nil, err
	}

	d.log.Info("transfer ready",
		zap.String("id", t.ID()),
		zap.String("url", url),
		zap.String("prefix", prefix))
	return t, nil
}

func (d *Dispatcher) fetchSubtitles(ctx context.Context, h *plugin.Handle, item *model.MediaItem, prefix string) {
	subs, ok := h.Plugin.(plugin.SubtitleFetcher)
	if !ok {
		d.notify.Notify(download.LevelVerbose, fmt.Sprintf("%s does not provide subtitles", h.Name))
		return
	}

	paths, err := subs.Subtitles(ctx, item, prefix)
	if err != nil {
		d.notify.Notify(download.LevelWarning, fmt.Sprintf("Could not fetch subtitles: %v", err))
		return
	}
	for _, p := range paths {
		d.notify.Notify(download.LevelVerbose, "Saved subtitles "+p)
	}
}

// finish runs on the goroutine of the last leg once every leg is on disk.
func (d *Dispatcher) finish(item *model.MediaItem, prefix string, audioStream, videoStream *model.Stream) {
	// The caller's context may already be done; post-processing is local.
	ctx := context.Background()

	var audioIn, videoIn *merge.Input
	if audioStream != nil {
		audioIn = &merge.Input{Path: audioStream.LegPath(prefix), Stream: *audioStream}
	}
	if videoStream != nil {
		videoIn = &merge.Input{Path: videoStream.LegPath(prefix), Stream: *videoStream}
	}

	output := ""
	if d.merger != nil {
		out, err := d.merger.Merge(ctx, prefix, audioIn, videoIn)
		if err != nil {
			d.log.Warn("merge failed", zap.String("prefix", prefix), zap.Error(err))
			d.notify.Notify(download.LevelError, fmt.Sprintf("Could not merge %s, leg files kept: %v", item.Title, err))
		} else {
			output = out
		}
	}

	var artwork []byte
	if d.embedArtwork || d.saveThumbnail {
		jpg, err := d.thumbnailJPEG(ctx, item)
		switch {
		case errors.Is(err, ErrNoThumbnail):
		case err != nil:
			d.notify.Notify(download.LevelWarning, fmt.Sprintf("Could not fetch thumbnail: %v", err))
		default:
			artwork = jpg
		}
	}

	if output != "" && d.tagger != nil && audio.IsTaggable(output) {
		var cover []byte
		if d.embedArtwork {
			cover = artwork
		}
		if err := d.tagger.SaveTags(output, item, cover); err != nil {
			d.notify.Notify(download.LevelWarning, fmt.Sprintf("Could not tag %s: %v", output, err))
		}
	}

	if d.saveThumbnail && artwork != nil {
		if err := ioutils.WriteFile(prefix+".jpg", artwork); err != nil {
			d.notify.Notify(download.LevelWarning, fmt.Sprintf("Could not save thumbnail: %v", err))
		}
	}

	if output == "" {
		output = prefix
	}
	d.notify.Notify(download.LevelSuccess, fmt.Sprintf("Downloaded %s -> %s", item.Title, output))
}

// Thumbnail saves the best thumbnail of url as <folder>/<title>.jpg and
// returns its path.
func (d *Dispatcher) Thumbnail(ctx context.Context, url, folder string) (string, error) {
	item, err := d.Metadata(ctx, url)
	if err != nil {
		return "", err
	}

	jpg, err := d.thumbnailJPEG(ctx, item)
	if err != nil {
		return "", err
	}

	path := model.OutputPrefix(folder, item.Title) + ".jpg"
	if err := ioutils.WriteFile(path, jpg); err != nil {
		return "", err
	}
	return path, nil
}

func (d *Dispatcher) thumbnailJPEG(ctx context.Context, item *model.MediaItem) ([]byte, error) {
	thumb, ok := item.BestThumbnail()
	if !ok {
		return nil, ErrNoThumbnail
	}

	data, err := d.client.DownloadBytes(ctx, thumb.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch thumbnail: %w", err)
	}
	return d.images.ToJPEG(data, d.thumbMaxSize, d.thumbMaxSize)
}
