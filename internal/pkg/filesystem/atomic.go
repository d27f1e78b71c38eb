package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/doeshing/promptkeep/internal/domain"
)

// renameFile is swapped by tests to simulate a crash between write and rename.
var renameFile = os.Rename

// WriteFileAtomic writes data to a temporary file in the target's directory,
// syncs it and renames it over path. Readers observe either the old file or
// the complete new one. On failure or cancellation the temporary file is removed.
func WriteFileAtomic(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return domain.NewIOFailure("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return domain.NewIOFailure("create temp", dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.NewIOFailure("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.NewIOFailure("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.NewIOFailure("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return domain.NewIOFailure("chmod", tmpPath, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := renameFile(tmpPath, path); err != nil {
		return domain.NewIOFailure("rename", path, err)
	}
	committed = true
	syncDir(dir)
	return nil
}

// CreateFileExclusive is WriteFileAtomic for files that must never be replaced:
// the final step is a hard link, which fails if path already exists.
func CreateFileExclusive(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return domain.NewIOFailure("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return domain.NewIOFailure("create temp", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.NewIOFailure("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.NewIOFailure("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.NewIOFailure("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return domain.NewIOFailure("chmod", tmpPath, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := linkFile(tmpPath, path); err != nil {
		if os.IsExist(err) {
			return domain.NewIOFailure("create", path, os.ErrExist)
		}
		return domain.NewIOFailure("link", path, err)
	}
	syncDir(dir)
	return nil
}

var linkFile = os.Link

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
