// Package kv defines the key-value store every workflow reads and writes.
//
// Values are JSON documents stored under string keys. Load and Save do the
// (de)serialization; Store.Update groups related writes so that a capsule
// record and the capsule index are committed together or not at all.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
)

// Reader reads raw values by key.
type Reader interface {
	// Get returns the stored bytes and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// Writer writes raw values by key.
type Writer interface {
	// Set stores value under key, overwriting any prior value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Tx is the view of a store inside Update.
type Tx interface {
	Reader
	Writer
}

// Store is a persistent key-value store.
type Store interface {
	Tx

	// Update runs fn as one unit: either every write made through tx is
	// persisted or none is. Reads through tx observe its own writes.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// Load reads key and decodes it into a T. On a miss it returns fallback.
func Load[T any](ctx context.Context, r Reader, key string, fallback T) (T, error) {
	data, ok, err := r.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fallback, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// Save encodes v as JSON and stores it under key.
func Save(ctx context.Context, w Writer, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return w.Set(ctx, key, data)
}

// bufferedTx collects writes over a base reader until they are committed.
// Deleted keys are recorded with a nil value.
type bufferedTx struct {
	base   Reader
	writes map[string][]byte
	order  []string
}

func newBufferedTx(base Reader) *bufferedTx {
	return &bufferedTx{base: base, writes: make(map[string][]byte)}
}

func (t *bufferedTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := t.writes[key]; ok {
		if v == nil {
			return nil, false, nil
		}
		return v, true, nil
	}
	return t.base.Get(ctx, key)
}

func (t *bufferedTx) Set(_ context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	t.record(key, value)
	return nil
}

func (t *bufferedTx) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		t.record(k, nil)
	}
	return nil
}

func (t *bufferedTx) record(key string, value []byte) {
	if _, seen := t.writes[key]; !seen {
		t.order = append(t.order, key)
	}
	t.writes[key] = value
}

// each visits buffered writes in first-write order. A nil value is a delete.
func (t *bufferedTx) each(fn func(key string, value []byte)) {
	for _, k := range t.order {
		fn(k, t.writes[k])
	}
}
