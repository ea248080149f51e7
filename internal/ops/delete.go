package ops

import (
	"context"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete removes the index entry, the capsule record and the progress record
// of a capsule in one transaction. A dangling index entry is removed too.
func Delete(ctx context.Context, store kv.Store, input DeleteInput) (*DeleteOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	err = store.Update(ctx, func(tx kv.Tx) error {
		idx, err := loadIndex(ctx, tx)
		if err != nil {
			return err
		}
		_, exists, err := tx.Get(ctx, capsule.RecordKey(id))
		if err != nil {
			return err
		}
		if !exists && idx.Find(id) < 0 {
			return errors.NewNotFound(id)
		}

		if err := kv.Save(ctx, tx, capsule.IndexKey, idx.Remove(id)); err != nil {
			return err
		}
		return tx.Delete(ctx, capsule.RecordKey(id), capsule.ProgressKey(id))
	})
	if err != nil {
		return nil, storeErr("delete", err)
	}

	return &DeleteOutput{Deleted: true, ID: id}, nil
}
