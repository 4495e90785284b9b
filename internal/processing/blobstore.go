package processing

import (
	"context"
	"os"
	"path/filepath"
)

// DiskStore is a BlobStore over a local directory. The production object
// store sits behind the same interface.
type DiskStore struct {
	Root string
}

func (d DiskStore) Read(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Root, path))
}
