package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/paletti/internal/dispatch"
	"github.com/handiism/paletti/internal/download"
	"github.com/handiism/paletti/internal/model"
	"github.com/handiism/paletti/internal/plugin"
)

// ParseInput splits user input into trimmed, non-empty lines. Each line is
// a page URL or a search query.
func ParseInput(input string) []string {
	var lines []string
	for _, line := range strings.Split(input, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Plan expands every line of input into downloadable entries.
//
// Media pages yield themselves, collection pages their entries and search
// queries the results of plugin searchPlugin. Entries of channel and user
// pages that are collections themselves (the releases of an artist) are
// expanded one more level. A line that fails is reported as an error
// notice and skipped; Plan only fails when nothing could be planned.
func (a *App) Plan(ctx context.Context, input, searchPlugin string, opts plugin.Options) ([]model.Summary, error) {
	var (
		planned []model.Summary
		errs    []error
	)
	for _, line := range ParseInput(input) {
		target := line
		if plugin.ClassifyInput(line) == model.KindSearchQuery {
			target = searchPlugin
		}

		kind, entries, err := a.Dispatcher.Browse(ctx, target, line, opts)
		if err != nil {
			a.notify.Notify(download.LevelError, fmt.Sprintf("Could not read %s: %v", line, err))
			errs = append(errs, err)
			continue
		}

		if kind == model.KindChannel || kind == model.KindUser {
			entries = a.expand(ctx, entries, opts)
		}
		a.notify.Notify(download.LevelInfo, fmt.Sprintf("Found %d item(s) in %s", len(entries), line))
		planned = append(planned, entries...)
	}

	if len(planned) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return planned, nil
}

func (a *App) expand(ctx context.Context, entries []model.Summary, opts plugin.Options) []model.Summary {
	var out []model.Summary
	for _, e := range entries {
		kind, children, err := a.Dispatcher.Browse(ctx, e.URL, e.URL, opts)
		switch {
		case err != nil:
			a.notify.Notify(download.LevelError, fmt.Sprintf("Could not read %s: %v", e.URL, err))
		case kind == model.KindPlaylist:
			a.notify.Notify(download.LevelVerbose, fmt.Sprintf("%s: %d item(s)", e.Title, len(children)))
			out = append(out, children...)
		default:
			out = append(out, e)
		}
	}
	return out
}

// Batch downloads a list of entries, a few at a time, and keeps running
// totals for progress displays. A failed entry does not stop the others.
type Batch struct {
	dispatcher *dispatch.Dispatcher
	notify     download.Notifier
	log        *zap.Logger
	limit      int

	mu     sync.Mutex
	active map[string]*download.Transfer

	doneBytes  atomic.Int64
	doneTotal  atomic.Int64
	files      atomic.Int32
	totalFiles atomic.Int32
	failed     atomic.Int32
}

// NewBatch creates a batch running at most MaxConcurrentDownloads
// transfers at once.
func (a *App) NewBatch() *Batch {
	return &Batch{
		dispatcher: a.Dispatcher,
		notify:     a.notify,
		log:        a.Log.Named("batch"),
		limit:      a.Settings.MaxConcurrentDownloads,
		active:     make(map[string]*download.Transfer),
	}
}

// Run downloads every entry into folder and blocks until all are done or
// ctx is cancelled. It returns an error when any entry failed.
func (b *Batch) Run(ctx context.Context, entries []model.Summary, folder string, opts dispatch.Options) error {
	b.totalFiles.Add(int32(len(entries)))

	var g errgroup.Group
	g.SetLimit(b.limit)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			b.download(ctx, e, folder, opts)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := b.failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d downloads failed", n, len(entries))
	}
	return nil
}

func (b *Batch) download(ctx context.Context, e model.Summary, folder string, opts dispatch.Options) {
	if ctx.Err() != nil {
		return
	}

	t, err := b.dispatcher.Download(ctx, e.URL, folder, opts)
	if err != nil {
		b.failed.Add(1)
		b.notify.Notify(download.LevelError, fmt.Sprintf("Could not download %s: %v", label(e), err))
		return
	}

	b.track(t)
	defer b.untrack(t)

	if err := t.Start(ctx); err != nil {
		b.failed.Add(1)
		b.notify.Notify(download.LevelError, fmt.Sprintf("Could not start %s: %v", label(e), err))
		return
	}
	stop := context.AfterFunc(ctx, t.Cancel)
	defer stop()

	b.notify.Notify(download.LevelVerbose, fmt.Sprintf("Downloading %s", label(e)))
	err = t.Wait()
	switch {
	case err != nil:
		b.failed.Add(1)
		b.notify.Notify(download.LevelError, fmt.Sprintf("Failed to download %s: %v", label(e), err))
	case t.State() == download.StateCancelled:
		b.notify.Notify(download.LevelWarning, fmt.Sprintf("Cancelled %s", label(e)))
	default:
		b.files.Add(1)
	}
}

func (b *Batch) track(t *download.Transfer) {
	b.mu.Lock()
	b.active[t.ID()] = t
	b.mu.Unlock()
}

func (b *Batch) untrack(t *download.Transfer) {
	done, total := t.Progress()

	b.mu.Lock()
	delete(b.active, t.ID())
	b.doneBytes.Add(done)
	b.doneTotal.Add(total)
	b.mu.Unlock()

	b.log.Debug("transfer settled", zap.String("id", t.ID()), zap.Stringer("state", t.State()))
}

// Progress returns the bytes received, the bytes known so far and the
// finished and planned entry counts. The byte total grows as transfers
// are prepared.
func (b *Batch) Progress() (received, total int64, files, totalFiles int32) {
	b.mu.Lock()
	received, total = b.doneBytes.Load(), b.doneTotal.Load()
	for _, t := range b.active {
		d, s := t.Progress()
		received += d
		total += s
	}
	b.mu.Unlock()
	return received, total, b.files.Load(), b.totalFiles.Load()
}

func label(e model.Summary) string {
	switch {
	case e.Uploader != "" && e.Title != "":
		return e.Uploader + " - " + e.Title
	case e.Title != "":
		return e.Title
	default:
		return e.URL
	}
}
