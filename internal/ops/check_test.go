package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/kv"
)

func TestCheck_Consistent(t *testing.T) {
	store := newTestStore(t)
	saveSample(t, store)

	out, err := Check(context.Background(), store, CheckInput{})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if out.Indexed != 1 || len(out.Dangling)+len(out.Orphaned)+len(out.OrphanedProgress)+len(out.Duplicates) != 0 {
		t.Errorf("Check = %+v", out)
	}
	if out.Message != "Index consistent (1 capsule)" {
		t.Errorf("Message = %q", out.Message)
	}
}

// breakStore leaves one dangling entry, one duplicate, one unindexed
// capsule and one orphaned progress record.
func breakStore(t *testing.T, store kv.Store) (kept, orphan string) {
	t.Helper()
	ctx := context.Background()

	kept = saveSample(t, store)
	orphan = saveSample(t, store)

	idx := readIndex(t, store).Remove(orphan)
	idx = append(idx, capsule.IndexEntry{ID: "ghost"}, idx[0])
	if err := kv.Save(ctx, store, capsule.IndexKey, idx); err != nil {
		t.Fatalf("kv.Save failed: %v", err)
	}
	if err := kv.Save(ctx, store, capsule.ProgressKey("gone"), capsule.NewProgress()); err != nil {
		t.Fatalf("kv.Save failed: %v", err)
	}
	return kept, orphan
}

func TestCheck_ReportsProblems(t *testing.T) {
	store := newTestStore(t)
	kept, orphan := breakStore(t, store)

	out, err := Check(context.Background(), store, CheckInput{})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(out.Dangling) != 1 || out.Dangling[0] != "ghost" {
		t.Errorf("Dangling = %v", out.Dangling)
	}
	if len(out.Duplicates) != 1 || out.Duplicates[0] != kept {
		t.Errorf("Duplicates = %v", out.Duplicates)
	}
	if len(out.Orphaned) != 1 || out.Orphaned[0] != orphan {
		t.Errorf("Orphaned = %v", out.Orphaned)
	}
	if len(out.OrphanedProgress) != 1 || out.OrphanedProgress[0] != "gone" {
		t.Errorf("OrphanedProgress = %v", out.OrphanedProgress)
	}
	if out.Pruned || !strings.HasPrefix(out.Message, "Found ") {
		t.Errorf("Message = %q", out.Message)
	}

	// Report only: nothing changed
	if idx := readIndex(t, store); len(idx) != 3 {
		t.Errorf("index length = %d, want 3", len(idx))
	}
}

func TestCheck_Prune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	kept, orphan := breakStore(t, store)

	out, err := Check(ctx, store, CheckInput{Prune: true})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !out.Pruned || !strings.HasPrefix(out.Message, "Repaired ") {
		t.Errorf("Check = %+v", out)
	}

	idx := readIndex(t, store)
	if len(idx) != 2 || idx[0].ID != kept || idx[1].ID != orphan {
		t.Errorf("index after prune = %+v, want [%s %s]", idx, kept, orphan)
	}
	if _, ok, _ := store.Get(ctx, capsule.ProgressKey("gone")); ok {
		t.Error("orphaned progress not removed")
	}

	again, _ := Check(ctx, store, CheckInput{})
	if !strings.HasPrefix(again.Message, "Index consistent") {
		t.Errorf("second check = %q", again.Message)
	}
}
