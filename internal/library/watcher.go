package library

import (
	"context"
	"sync"
	"time"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/events"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/logging"
)

// Reasons for an Update.
const (
	ReasonChange = "change"
	ReasonPoll   = "poll"
)

// Update tells listeners the library should be re-rendered.
type Update struct {
	Version uint64         `json:"version"`
	Reason  string         `json:"reason"`
	Change  *events.Change `json:"change,omitempty"`
}

// Watcher decides when the library is stale. It re-renders on every change
// notification, and on every poll whose serialized index differs from the
// last one seen. The snapshot starts empty, so the first poll of a
// non-empty store always triggers.
type Watcher struct {
	store    kv.Reader
	bus      *events.Bus
	interval time.Duration
	log      *logging.Logger

	mu        sync.Mutex
	snapshot  string
	version   uint64
	listeners map[int]func(Update)
	nextID    int
}

// NewWatcher creates a Watcher. bus may be nil, leaving polling alone.
func NewWatcher(store kv.Reader, bus *events.Bus, interval time.Duration, log *logging.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Watcher{
		store:     store,
		bus:       bus,
		interval:  interval,
		log:       log,
		listeners: make(map[int]func(Update)),
	}
}

// Version counts the updates so far.
func (w *Watcher) Version() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// OnChange registers fn for every Update. The returned func unregisters it.
func (w *Watcher) OnChange(fn func(Update)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// Run polls and consumes notifications until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	var changes <-chan events.Change
	if w.bus != nil {
		ch, err := w.bus.Subscribe(ctx)
		if err != nil {
			return err
		}
		changes = ch
	}

	if _, err := w.Poll(ctx); err != nil {
		w.log.Warn("library poll failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if err := w.Notify(ctx, c); err != nil {
				w.log.Warn("library refresh failed", "error", err)
			}
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				w.log.Warn("library poll failed", "error", err)
			}
		}
	}
}

// Poll compares the serialized index with the snapshot and publishes an
// Update if it differs.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	raw, err := w.read(ctx)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	if raw == w.snapshot {
		w.mu.Unlock()
		return false, nil
	}
	w.snapshot = raw
	u := w.bumpLocked(ReasonPoll, nil)
	w.mu.Unlock()

	w.dispatch(u)
	return true, nil
}

// Notify records a change notification and publishes an Update.
func (w *Watcher) Notify(ctx context.Context, c events.Change) error {
	raw, err := w.read(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.snapshot = raw
	u := w.bumpLocked(ReasonChange, &c)
	w.mu.Unlock()

	w.dispatch(u)
	return nil
}

func (w *Watcher) read(ctx context.Context) (string, error) {
	data, _, err := w.store.Get(ctx, capsule.IndexKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *Watcher) bumpLocked(reason string, c *events.Change) Update {
	w.version++
	return Update{Version: w.version, Reason: reason, Change: c}
}

func (w *Watcher) dispatch(u Update) {
	w.mu.Lock()
	fns := make([]func(Update), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	w.log.Debug("library updated", "version", u.Version, "reason", u.Reason)
	for _, fn := range fns {
		fn(u)
	}
}
