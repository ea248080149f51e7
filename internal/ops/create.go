package ops

import (
	"context"
	"time"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/kv"
)

// CreateInput contains parameters for the Create operation.
// All fields are optional; a new capsule may start with a blank title.
type CreateInput struct {
	Title       string
	Subject     string
	Level       string
	Description string
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	ID      string           `json:"id"`
	Capsule *capsule.Capsule `json:"capsule"`
}

// Create persists an empty capsule and appends its index entry.
func Create(ctx context.Context, store kv.Store, input CreateInput) (*CreateOutput, error) {
	c := capsule.New(time.Now())
	c.Meta.Title = input.Title
	c.Meta.Subject = input.Subject
	c.Meta.Description = input.Description
	c.Meta.Level = capsule.ParseLevel(input.Level)

	err := store.Update(ctx, func(tx kv.Tx) error {
		return writeCapsule(ctx, tx, c)
	})
	if err != nil {
		return nil, storeErr("create", err)
	}

	return &CreateOutput{ID: c.ID, Capsule: c}, nil
}
