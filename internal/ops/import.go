package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required
}

// ImportDataInput contains parameters for the ImportData operation.
type ImportDataInput struct {
	Data   []byte
	Source string // used in error messages, default: "import"
}

// ImportOutput contains the result of an import.
type ImportOutput struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Import reads an export document from disk and imports it.
func Import(ctx context.Context, store kv.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openCapsuleFile(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if pErr, ok := errors.As(err); ok {
			return nil, pErr
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	limit := maxImportBytes(cfg)
	if info, err := file.Stat(); err == nil && info.Size() > limit {
		return nil, errors.NewFileTooLarge(limit, info.Size())
	}
	data, err := readLimited(file, limit)
	if err != nil {
		return nil, err
	}

	return ImportData(ctx, store, ImportDataInput{Data: data, Source: input.Path})
}

// ImportData validates an export document and stores it under a fresh id,
// appending an index entry. Nothing is written when the document is
// rejected.
func ImportData(ctx context.Context, store kv.Store, input ImportDataInput) (*ImportOutput, error) {
	source := input.Source
	if source == "" {
		source = "import"
	}

	c, err := capsule.ParseImport(input.Data, time.Now())
	if err != nil {
		var ie *capsule.ImportError
		if stderrors.As(err, &ie) {
			return nil, errors.NewValidation(ie.Reason)
		}
		return nil, errors.NewMalformedInput(source, err)
	}

	err = store.Update(ctx, func(tx kv.Tx) error {
		return writeCapsule(ctx, tx, c)
	})
	if err != nil {
		return nil, storeErr("import", err)
	}

	return &ImportOutput{ID: c.ID, Title: c.Meta.Title}, nil
}

// ReadImport reads an uploaded export document, enforcing the configured
// size limit.
func ReadImport(r io.Reader, cfg *config.Config) ([]byte, error) {
	return readLimited(r, maxImportBytes(cfg))
}

func maxImportBytes(cfg *config.Config) int64 {
	if cfg != nil && cfg.ImportMaxBytes > 0 {
		return cfg.ImportMaxBytes
	}
	return config.DefaultConfig().ImportMaxBytes
}

// readLimited reads at most max bytes from r, failing if there is more.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if int64(len(data)) > max {
		return nil, errors.NewFileTooLarge(max, int64(len(data)))
	}
	return data, nil
}
