package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

type (
	// A BlobStore holds uploaded binary files (item pictures, avatars).
	BlobStore interface {
		// Put stores the given data and returns the blob id.
		Put(data []byte, ext string) (string, error)
		// Path returns the filesystem path of the given blob id.
		Path(id string) (string, error)
		// Delete removes the blob. Deleting an absent blob is not an error.
		Delete(id string) error
	}

	disk struct {
		root string
	}
)

// NewDisk returns a BlobStore writing below the given directory.
func NewDisk(root string) (BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create blob directory")
	}
	return &disk{root: root}, nil
}

// Put stores the given data and returns the blob id.
func (s *disk) Put(data []byte, ext string) (string, error) {
	id := uuid.Must(uuid.NewV4()).String()
	if ext != "" {
		id += "." + strings.TrimPrefix(ext, ".")
	}

	err := os.WriteFile(filepath.Join(s.root, id), data, 0o644)
	return id, errors.Wrap(err, "could not write blob")
}

// Path returns the filesystem path of the given blob id.
func (s *disk) Path(id string) (string, error) {
	// Blob ids are generated server side, but never trust them as paths.
	if id == "" || id != filepath.Base(id) {
		return "", errors.New("invalid blob id")
	}

	path := filepath.Join(s.root, id)
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrap(err, "could not stat blob")
	}
	return path, nil
}

// Delete removes the blob. Deleting an absent blob is not an error.
func (s *disk) Delete(id string) error {
	if id == "" || id != filepath.Base(id) {
		return errors.New("invalid blob id")
	}

	err := os.Remove(filepath.Join(s.root, id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "could not delete blob")
	}
	return nil
}
