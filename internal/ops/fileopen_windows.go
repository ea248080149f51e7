//go:build windows

package ops

import "os"

// openCapsuleFile opens an import or export file. Windows has no
// O_NOFOLLOW; ValidatePath has already refused symlinks.
func openCapsuleFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, fileErr(path, err)
	}
	return f, nil
}
