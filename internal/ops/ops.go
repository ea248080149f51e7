// Package ops implements the capsule operations shared by the web UI, the
// CLI and the MCP server. Each operation takes an XxxInput and returns an
// XxxOutput or a *errors.PocketError.
package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// requireID trims id and rejects blanks.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// storeErr converts a store failure into a PocketError.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pErr *errors.PocketError
	if stderrors.As(err, &pErr) {
		return pErr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewCancelled(op)
	}
	return errors.NewInternal(err)
}

// loadIndex reads the capsule index, empty on a miss.
func loadIndex(ctx context.Context, r kv.Reader) (capsule.Index, error) {
	idx, err := kv.Load(ctx, r, capsule.IndexKey, capsule.Index{})
	if err != nil {
		return nil, err
	}
	if idx == nil {
		idx = capsule.Index{}
	}
	return idx, nil
}

// loadCapsule reads a capsule record, or nil on a miss.
func loadCapsule(ctx context.Context, r kv.Reader, id string) (*capsule.Capsule, error) {
	return kv.Load[*capsule.Capsule](ctx, r, capsule.RecordKey(id), nil)
}

// loadProgress reads a progress record, zero-valued on a miss.
func loadProgress(ctx context.Context, r kv.Reader, id string) (capsule.Progress, error) {
	p, err := kv.Load(ctx, r, capsule.ProgressKey(id), capsule.NewProgress())
	if err != nil {
		return capsule.NewProgress(), err
	}
	p.Normalize()
	return p, nil
}

// writeCapsule stores c and upserts its index entry.
func writeCapsule(ctx context.Context, tx kv.Tx, c *capsule.Capsule) error {
	idx, err := loadIndex(ctx, tx)
	if err != nil {
		return err
	}
	if err := kv.Save(ctx, tx, capsule.RecordKey(c.ID), c); err != nil {
		return err
	}
	return kv.Save(ctx, tx, capsule.IndexKey, idx.Upsert(c.ToIndexEntry()))
}
