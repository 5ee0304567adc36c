// Package fileblob stores each blob as a JSON file in a directory.
// Writes go to a temporary file that is renamed over the target.
package fileblob

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
)

// Dir is a directory-backed blob store.
type Dir struct {
	root string
}

// New returns a store rooted at dir, creating it when missing.
func New(dir string) (*Dir, error) {
	if dir == "" {
		return nil, errors.NewConfigError("store", "file backend needs a directory", nil)
	}
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	return &Dir{root: dir}, nil
}

// Path returns the file holding key.
func (d *Dir) Path(key string) string {
	name := strings.NewReplacer("/", "_", string(os.PathSeparator), "_").Replace(key)
	return filepath.Join(d.root, name+".json")
}

// Get implements store.Blob.
func (d *Dir) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(d.Path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapIO("read", d.Path(key), err)
	}
	return data, true, nil
}

// Set implements store.Blob.
func (d *Dir) Set(_ context.Context, key string, data []byte) error {
	target := d.Path(key)

	tmp, err := os.CreateTemp(d.root, ".blob-*.tmp")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("write", target, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("sync", target, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", target, err)
	}
	if err := os.Chmod(tmpPath, constants.SecureFilePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("chmod", target, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("move", target, err)
	}
	return nil
}

// Close is a no-op.
func (d *Dir) Close() error {
	return nil
}
