package ops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	// Capsule is the edited draft. An empty ID saves it as a new capsule.
	Capsule *capsule.Capsule
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	ID        string           `json:"id"`
	Created   bool             `json:"created"`
	UpdatedAt time.Time        `json:"updated_at"`
	Notes     int              `json:"notes"`
	Cards     int              `json:"flashcards"`
	Questions int              `json:"quiz"`
	Dropped   int              `json:"dropped"`
	Warnings  []capsule.Issue  `json:"warnings,omitempty"`
	Capsule   *capsule.Capsule `json:"-"`
}

// Save cleans the draft and persists it together with its index entry.
// A draft with nothing left to study is rejected and nothing is written.
func Save(ctx context.Context, store kv.Store, input SaveInput) (*SaveOutput, error) {
	if input.Capsule == nil {
		return nil, errors.NewInvalidRequest("capsule is required")
	}

	draft := input.Capsule.Clone()
	draft.ID = strings.TrimSpace(draft.ID)
	if draft.ID == "" {
		draft.ID = capsule.NewID()
	}

	c := capsule.Clean(draft, time.Now())
	if c.IsEmpty() {
		return nil, errors.NewValidation(capsule.EmptyCapsuleMessage)
	}

	lint := capsule.Lint(c)
	if !lint.Valid {
		p := lint.Problems[0]
		return nil, errors.NewValidation(fmt.Sprintf("%s: %s", p.Field, p.Message))
	}

	created := false
	err := store.Update(ctx, func(tx kv.Tx) error {
		_, exists, err := tx.Get(ctx, capsule.RecordKey(c.ID))
		if err != nil {
			return err
		}
		created = !exists
		return writeCapsule(ctx, tx, c)
	})
	if err != nil {
		return nil, storeErr("save", err)
	}

	before := len(draft.Notes) + len(draft.Flashcards) + len(draft.Quiz)
	after := len(c.Notes) + len(c.Flashcards) + len(c.Quiz)

	return &SaveOutput{
		ID:        c.ID,
		Created:   created,
		UpdatedAt: c.Meta.UpdatedAt,
		Notes:     len(c.Notes),
		Cards:     len(c.Flashcards),
		Questions: len(c.Quiz),
		Dropped:   before - after,
		Warnings:  lint.Warnings,
		Capsule:   c,
	}, nil
}
