package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
)

// ExportDataInput contains parameters for the ExportData operation.
type ExportDataInput struct {
	ID string
}

// ExportDataOutput is an export document ready to download.
type ExportDataOutput struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
}

// ExportData renders a capsule as an export document, injecting the schema
// tag when the stored record lacks one.
func ExportData(ctx context.Context, store kv.Reader, input ExportDataInput) (*ExportDataOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	c, err := loadCapsule(ctx, store, id)
	if err != nil {
		return nil, storeErr("export", err)
	}
	if c == nil {
		return nil, errors.NewNotFound(id)
	}

	data, err := capsule.MarshalExport(c)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &ExportDataOutput{
		ID:       id,
		Filename: capsule.ExportFilename(c),
		Data:     data,
	}, nil
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	ID   string
	Path string // optional, default: <base dir>/exports/<slug>.json
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// Export writes a capsule's export document to a file.
func Export(ctx context.Context, store kv.Reader, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	doc, err := ExportData(ctx, store, ExportDataInput{ID: input.ID})
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
		}
		exportPath = filepath.Join(dir, doc.Filename)
	}

	// Default paths are validated too
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	if err := writeFileAtomic(exportPath, doc.Data); err != nil {
		return nil, err
	}

	return &ExportOutput{
		ID:    doc.ID,
		Path:  exportPath,
		Bytes: len(doc.Data),
	}, nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so an existing file survives a failed write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openCapsuleFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// A symlink created at path after ValidatePath ran would be replaced by
	// a regular file; refuse it the same way ValidatePath does.
	if isSymlink(path) {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	// Windows refuses to rename over an existing file; keep the old one
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
