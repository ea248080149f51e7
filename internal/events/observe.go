package events

import (
	"context"
	"strings"
	"sync"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/logging"
)

// ObservedStore is a kv.Store that publishes a Change after every
// successful write to the capsule index or a progress record.
type ObservedStore struct {
	kv.Store
	bus *Bus
	log *logging.Logger
}

// Observe wraps store so its writes are broadcast on bus.
func Observe(store kv.Store, bus *Bus, log *logging.Logger) *ObservedStore {
	if log == nil {
		log = logging.Nop()
	}
	return &ObservedStore{Store: store, bus: bus, log: log}
}

// Set implements kv.Writer.
func (s *ObservedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.Store.Set(ctx, key, value); err != nil {
		return err
	}
	s.publish(key)
	return nil
}

// Delete implements kv.Writer.
func (s *ObservedStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.Store.Delete(ctx, keys...); err != nil {
		return err
	}
	s.publish(keys...)
	return nil
}

// Update implements kv.Store. Changes are published once, after commit.
func (s *ObservedStore) Update(ctx context.Context, fn func(tx kv.Tx) error) error {
	rec := &recordingTx{}
	err := s.Store.Update(ctx, func(tx kv.Tx) error {
		rec.Tx = tx
		rec.reset()
		return fn(rec)
	})
	if err != nil {
		return err
	}
	s.publish(rec.touched()...)
	return nil
}

func (s *ObservedStore) publish(keys ...string) {
	changes := ChangesFor(keys...)
	if len(changes) == 0 {
		return
	}
	if err := s.bus.Publish(changes...); err != nil {
		s.log.Error("publish change failed", "error", err)
	}
}

// ChangesFor maps written keys to the Changes they imply, without
// duplicates. Keys of capsule records alone imply nothing: every record
// write that matters also rewrites the index.
func ChangesFor(keys ...string) []Change {
	var out []Change
	seen := make(map[Change]bool)
	for _, k := range keys {
		var c Change
		switch {
		case k == capsule.IndexKey:
			c = Change{Kind: KindIndex}
		case strings.HasPrefix(k, capsule.ProgressPrefix):
			c = Change{Kind: KindProgress, ID: strings.TrimPrefix(k, capsule.ProgressPrefix)}
		default:
			continue
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// recordingTx remembers the keys written through it.
type recordingTx struct {
	kv.Tx
	mu   sync.Mutex
	keys []string
}

func (t *recordingTx) Set(ctx context.Context, key string, value []byte) error {
	if err := t.Tx.Set(ctx, key, value); err != nil {
		return err
	}
	t.add(key)
	return nil
}

func (t *recordingTx) Delete(ctx context.Context, keys ...string) error {
	if err := t.Tx.Delete(ctx, keys...); err != nil {
		return err
	}
	t.add(keys...)
	return nil
}

func (t *recordingTx) add(keys ...string) {
	t.mu.Lock()
	t.keys = append(t.keys, keys...)
	t.mu.Unlock()
}

func (t *recordingTx) reset() {
	t.mu.Lock()
	t.keys = nil
	t.mu.Unlock()
}

func (t *recordingTx) touched() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.keys...)
}
