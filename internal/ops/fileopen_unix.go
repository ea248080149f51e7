//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/hpungsan/pocket/internal/errors"
)

// openCapsuleFile opens an import or export file without following a
// symlink in its last element. Directory elements are covered by
// ValidatePath, which only admits files directly inside an allowed dir.
func openCapsuleFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if stderrors.Is(err, syscall.ELOOP) {
		return nil, errors.NewInvalidRequest("capsule file is a symlink: " + filepath.Base(path))
	}
	if err != nil {
		return nil, fileErr(path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
