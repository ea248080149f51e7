package events

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/db"
	"github.com/hpungsan/pocket/internal/kv"
)

func newObservedStore(t *testing.T) (*ObservedStore, *Bus) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	bus := NewBus(nil)
	store := Observe(db.NewStore(database), bus, nil)
	t.Cleanup(func() {
		bus.Close()
		store.Close()
	})
	return store, bus
}

func subscribe(t *testing.T, bus *Bus) <-chan Change {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	return ch
}

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func expectNone(t *testing.T, ch <-chan Change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChangesFor(t *testing.T) {
	got := ChangesFor(
		capsule.RecordKey("a"),
		capsule.IndexKey,
		capsule.ProgressKey("a"),
		capsule.IndexKey,
		capsule.ProgressKey("b"),
	)
	want := []Change{
		{Kind: KindIndex},
		{Kind: KindProgress, ID: "a"},
		{Kind: KindProgress, ID: "b"},
	}
	if len(got) != len(want) {
		t.Fatalf("ChangesFor() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ChangesFor()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()
	ch := subscribe(t, bus)

	if err := bus.Publish(Change{Kind: KindProgress, ID: "x"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if c := receive(t, ch); c.Kind != KindProgress || c.ID != "x" {
		t.Errorf("received %+v", c)
	}
}

func TestBus_PublishNothing(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()
	if err := bus.Publish(); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestObservedStore_SetIndexPublishes(t *testing.T) {
	store, bus := newObservedStore(t)
	ch := subscribe(t, bus)
	ctx := context.Background()

	if err := kv.Save(ctx, store, capsule.IndexKey, capsule.Index{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if c := receive(t, ch); c.Kind != KindIndex {
		t.Errorf("received %+v, want index change", c)
	}
}

func TestObservedStore_RecordOnlyIsQuiet(t *testing.T) {
	store, bus := newObservedStore(t)
	ch := subscribe(t, bus)

	if err := store.Set(context.Background(), capsule.RecordKey("a"), []byte(`{}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	expectNone(t, ch)
}

func TestObservedStore_UpdatePublishesAfterCommit(t *testing.T) {
	store, bus := newObservedStore(t)
	ch := subscribe(t, bus)
	ctx := context.Background()

	err := store.Update(ctx, func(tx kv.Tx) error {
		if err := tx.Set(ctx, capsule.RecordKey("a"), []byte(`{}`)); err != nil {
			return err
		}
		if err := tx.Set(ctx, capsule.IndexKey, []byte(`[]`)); err != nil {
			return err
		}
		return tx.Delete(ctx, capsule.ProgressKey("a"))
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// Delivery order across messages is not guaranteed.
	got := map[Change]bool{receive(t, ch): true, receive(t, ch): true}
	if !got[Change{Kind: KindIndex}] {
		t.Errorf("missing index change in %v", got)
	}
	if !got[Change{Kind: KindProgress, ID: "a"}] {
		t.Errorf("missing progress change in %v", got)
	}
}

func TestObservedStore_FailedUpdateIsQuiet(t *testing.T) {
	store, bus := newObservedStore(t)
	ch := subscribe(t, bus)
	ctx := context.Background()
	boom := stderrors.New("boom")

	err := store.Update(ctx, func(tx kv.Tx) error {
		if err := tx.Set(ctx, capsule.IndexKey, []byte(`[]`)); err != nil {
			return err
		}
		return boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}
	expectNone(t, ch)

	if _, ok, _ := store.Get(ctx, capsule.IndexKey); ok {
		t.Error("index written despite failed update")
	}
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
