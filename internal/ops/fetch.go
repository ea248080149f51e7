package ops

import (
	"context"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	capsule.Capsule // embedded (copy, not pointer)

	// Indexed is false when the record has no index entry
	Indexed bool `json:"indexed"`
}

// Fetch retrieves a capsule record by ID.
func Fetch(ctx context.Context, store kv.Reader, input FetchInput) (*FetchOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	c, err := loadCapsule(ctx, store, id)
	if err != nil {
		return nil, storeErr("fetch", err)
	}
	if c == nil {
		return nil, errors.NewNotFound(id)
	}

	idx, err := loadIndex(ctx, store)
	if err != nil {
		return nil, storeErr("fetch", err)
	}

	return &FetchOutput{
		Capsule: *c,
		Indexed: idx.Find(id) >= 0,
	}, nil
}
