package ops

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/kv"
)

// CheckInput contains parameters for the Check operation.
type CheckInput struct {
	// Prune repairs what it finds: dangling entries and orphaned progress
	// are removed, orphaned capsules are indexed again.
	Prune bool
}

// CheckOutput contains the result of the Check operation.
type CheckOutput struct {
	Indexed int `json:"indexed"`

	// Dangling index entries have no capsule record
	Dangling []string `json:"dangling"`

	// Orphaned capsule records have no index entry
	Orphaned []string `json:"orphaned"`

	// OrphanedProgress records belong to no capsule
	OrphanedProgress []string `json:"orphaned_progress"`

	// Duplicates are ids listed more than once in the index
	Duplicates []string `json:"duplicates"`

	Pruned  bool   `json:"pruned"`
	Message string `json:"message"`
}

// Check compares the capsule index with the stored records.
func Check(ctx context.Context, store kv.Store, input CheckInput) (*CheckOutput, error) {
	out, err := scanIndex(ctx, store)
	if err != nil {
		return nil, storeErr("check", err)
	}

	if input.Prune {
		err := store.Update(ctx, func(tx kv.Tx) error {
			return prune(ctx, tx, out)
		})
		if err != nil {
			return nil, storeErr("check", err)
		}
		out.Pruned = true
	}

	out.Message = formatCheckMessage(out)
	return out, nil
}

func scanIndex(ctx context.Context, store kv.Store) (*CheckOutput, error) {
	idx, err := loadIndex(ctx, store)
	if err != nil {
		return nil, err
	}
	records, err := idsWithPrefix(ctx, store, capsule.RecordPrefix)
	if err != nil {
		return nil, err
	}
	progress, err := idsWithPrefix(ctx, store, capsule.ProgressPrefix)
	if err != nil {
		return nil, err
	}

	out := &CheckOutput{
		Dangling:         []string{},
		Orphaned:         []string{},
		OrphanedProgress: []string{},
		Duplicates:       []string{},
	}
	indexed := make(map[string]bool, len(idx))
	for _, e := range idx {
		if indexed[e.ID] {
			out.Duplicates = append(out.Duplicates, e.ID)
			continue
		}
		indexed[e.ID] = true
		if !records[e.ID] {
			out.Dangling = append(out.Dangling, e.ID)
		}
	}
	out.Indexed = len(indexed)

	for _, id := range sortedKeys(records) {
		if !indexed[id] {
			out.Orphaned = append(out.Orphaned, id)
		}
	}
	for _, id := range sortedKeys(progress) {
		if !records[id] {
			out.OrphanedProgress = append(out.OrphanedProgress, id)
		}
	}
	return out, nil
}

// prune rewrites the index without dangling or duplicate entries, appends
// entries for orphaned capsules, and deletes orphaned progress.
func prune(ctx context.Context, tx kv.Tx, out *CheckOutput) error {
	idx, err := loadIndex(ctx, tx)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(out.Dangling))
	for _, id := range out.Dangling {
		drop[id] = true
	}
	seen := make(map[string]bool, len(idx))
	clean := make(capsule.Index, 0, len(idx))
	for _, e := range idx {
		if drop[e.ID] || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		clean = append(clean, e)
	}

	for _, id := range out.Orphaned {
		c, err := loadCapsule(ctx, tx, id)
		if err != nil {
			return err
		}
		if c != nil {
			clean = clean.Upsert(c.ToIndexEntry())
		}
	}

	if err := kv.Save(ctx, tx, capsule.IndexKey, clean); err != nil {
		return err
	}

	keys := make([]string, len(out.OrphanedProgress))
	for i, id := range out.OrphanedProgress {
		keys[i] = capsule.ProgressKey(id)
	}
	return tx.Delete(ctx, keys...)
}

// idsWithPrefix lists ids of keys under prefix.
func idsWithPrefix(ctx context.Context, store kv.Store, prefix string) (map[string]bool, error) {
	keys, err := store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(keys))
	for _, k := range keys {
		ids[strings.TrimPrefix(k, prefix)] = true
	}
	return ids, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// formatCheckMessage creates a human-readable summary of the check.
func formatCheckMessage(out *CheckOutput) string {
	problems := len(out.Dangling) + len(out.Orphaned) + len(out.OrphanedProgress) + len(out.Duplicates)
	if problems == 0 {
		return fmt.Sprintf("Index consistent (%d %s)", out.Indexed, plural(out.Indexed, "capsule", "capsules"))
	}

	var parts []string
	if n := len(out.Dangling); n > 0 {
		parts = append(parts, fmt.Sprintf("%d dangling %s", n, plural(n, "entry", "entries")))
	}
	if n := len(out.Duplicates); n > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate %s", n, plural(n, "entry", "entries")))
	}
	if n := len(out.Orphaned); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unindexed %s", n, plural(n, "capsule", "capsules")))
	}
	if n := len(out.OrphanedProgress); n > 0 {
		parts = append(parts, fmt.Sprintf("%d orphaned progress %s", n, plural(n, "record", "records")))
	}

	verb := "Found"
	if out.Pruned {
		verb = "Repaired"
	}
	return verb + " " + strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
