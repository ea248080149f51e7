package ops

import (
	"context"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/kv"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 50, max: 500
	Offset int
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []capsule.IndexEntry `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// List returns index entries in index order.
func List(ctx context.Context, store kv.Reader, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	idx, err := loadIndex(ctx, store)
	if err != nil {
		return nil, storeErr("list", err)
	}

	total := len(idx)
	start := min(offset, total)
	end := min(start+limit, total)

	items := make([]capsule.IndexEntry, end-start)
	copy(items, idx[start:end])

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
	}, nil
}
