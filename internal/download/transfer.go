package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/paletti/internal/model"
)

// State is the lifecycle state of a Transfer.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateCancelled
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCancelled:
		return "cancelled"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateFinished
}

var (
	// ErrNoLegs is returned by NewTransfer when every stream is nil.
	ErrNoLegs = errors.New("transfer has no streams")

	// ErrNotIdle is returned by Start on a transfer that already left idle.
	ErrNotIdle = errors.New("transfer already started")
)

// Leg is one stream of a transfer and the file it is written to.
type Leg struct {
	Stream model.Stream
	Path   string
	Size   int64

	written atomic.Int64
}

// Written returns the bytes written for this leg so far.
func (l *Leg) Written() int64 {
	return l.written.Load()
}

// Transfer downloads up to two streams (audio and video) concurrently.
//
// A Transfer is idle after NewTransfer, which has already resolved the
// total size. Start launches one worker per leg. When every leg completes
// the state moves to finished and the completion callback runs once, on
// the goroutine of the last leg. Cancel sets a flag the workers poll at
// chunk boundaries; it does not wait for them.
//
// Example:
//
//	t, err := download.NewTransfer(ctx, fetcher, "/videos/My_Title", []*model.Stream{audio, video}, merge)
//	if err != nil {
//	    return err
//	}
//	t.Start(ctx)
//	done, total := t.Progress()
type Transfer struct {
	id         string
	prefix     string
	legs       []*Leg
	fetcher    *Fetcher
	onComplete func(prefix string)
	log        *zap.Logger

	total       int64
	done        atomic.Int64
	state       atomic.Int32
	outstanding atomic.Int32
	cancelled   atomic.Bool
	group       errgroup.Group

	errMu sync.Mutex
	errs  []error
}

// NewTransfer builds an idle transfer for the non-nil streams.
//
// The size of every leg is probed before returning, in parallel. A probe
// failure returns an error matching ErrSizeProbeFailed and no file is
// created. Each leg is written to stream.LegPath(prefix).
func NewTransfer(ctx context.Context, f *Fetcher, prefix string, streams []*model.Stream, onComplete func(prefix string)) (*Transfer, error) {
	t := &Transfer{
		id:         uuid.NewString(),
		prefix:     prefix,
		fetcher:    f,
		onComplete: onComplete,
		log:        f.log,
	}

	for _, s := range streams {
		if s == nil {
			continue
		}
		t.legs = append(t.legs, &Leg{Stream: *s, Path: s.LegPath(prefix)})
	}
	if len(t.legs) == 0 {
		return nil, ErrNoLegs
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, leg := range t.legs {
		leg := leg
		g.Go(func() error {
			size, err := f.Probe(gctx, leg.Stream)
			if err != nil {
				return err
			}
			leg.Size = size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, leg := range t.legs {
		t.total += leg.Size
	}

	t.log.Debug("transfer created",
		zap.String("id", t.id),
		zap.String("prefix", prefix),
		zap.Int("legs", len(t.legs)),
		zap.Int64("total", t.total))
	return t, nil
}

// ID returns the unique identifier of the transfer.
func (t *Transfer) ID() string { return t.id }

// Prefix returns the extension-less output path.
func (t *Transfer) Prefix() string { return t.prefix }

// Legs returns the legs of the transfer. The slice must not be modified.
func (t *Transfer) Legs() []*Leg { return t.legs }

// State returns the current state.
func (t *Transfer) State() State { return State(t.state.Load()) }

// Progress returns the bytes written so far and the total size.
func (t *Transfer) Progress() (done, total int64) {
	return t.done.Load(), t.total
}

// Cancelled implements CancelSignal.
func (t *Transfer) Cancelled() bool { return t.cancelled.Load() }

// Err returns the errors of failed legs joined, or nil.
func (t *Transfer) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return errors.Join(t.errs...)
}

// Start moves the transfer to active and launches one worker per leg.
// ctx bounds the HTTP requests of the workers.
func (t *Transfer) Start(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(StateIdle), int32(StateActive)) {
		return ErrNotIdle
	}
	t.outstanding.Store(int32(len(t.legs)))

	for _, leg := range t.legs {
		leg := leg
		t.group.Go(func() error {
			return t.run(ctx, leg)
		})
	}
	return nil
}

// Cancel stops the transfer without waiting for the workers. Each worker
// stops at its next chunk boundary, so one more chunk per leg may reach
// the disk after Cancel returns. Partial files are left in place.
// Call Wait to block until the workers have exited.
func (t *Transfer) Cancel() {
	t.cancelled.Store(true)
	if t.state.CompareAndSwap(int32(StateIdle), int32(StateCancelled)) {
		return
	}
	t.state.CompareAndSwap(int32(StateActive), int32(StateCancelled))
}

// Wait blocks until every worker has returned and reports the leg errors.
func (t *Transfer) Wait() error {
	return t.group.Wait()
}

func (t *Transfer) run(ctx context.Context, leg *Leg) error {
	req := Request{Stream: leg.Stream, Path: leg.Path, Size: leg.Size}
	_, err := t.fetcher.Fetch(ctx, req, func(n int64) {
		leg.written.Add(n)
		t.add(n)
	}, t)

	switch {
	case errors.Is(err, ErrCancelled):
		t.Cancel()
		return nil
	case err != nil:
		t.fail(err)
		return err
	}

	if t.outstanding.Add(-1) == 0 && t.state.CompareAndSwap(int32(StateActive), int32(StateFinished)) {
		t.log.Debug("transfer finished", zap.String("id", t.id), zap.Int64("bytes", t.done.Load()))
		if t.onComplete != nil {
			t.onComplete(t.prefix)
		}
	}
	return nil
}

// add raises done by n without passing total.
func (t *Transfer) add(n int64) {
	for {
		cur := t.done.Load()
		next := cur + n
		if next > t.total {
			next = t.total
		}
		if next == cur || t.done.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (t *Transfer) fail(err error) {
	t.errMu.Lock()
	t.errs = append(t.errs, err)
	t.errMu.Unlock()

	t.log.Warn("transfer leg failed", zap.String("id", t.id), zap.Error(err))
	t.state.CompareAndSwap(int32(StateActive), int32(StateCancelled))
}
