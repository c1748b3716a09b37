package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/leca/dt-image-store/internal/model"
)

// Storage defines the interface for the image content store.
type Storage interface {
	// Add stores a new primary image and returns its freshly generated key.
	Add(r io.Reader, opts AddOptions) (model.ImageKey, error)

	// AddSize derives a named size from the primary of key.
	AddSize(key model.ImageKey, size string, opts AddOptions) (model.ImageKey, error)

	// GetPath returns where a file lives. It does not check existence.
	GetPath(key model.ImageKey, size string) string

	// Open returns a ReadCloser for a stored primary or size.
	Open(key model.ImageKey, size string) (io.ReadCloser, error)

	// Describe reports the dimensions and byte size of a stored file.
	Describe(key model.ImageKey, size string) (FileInfo, error)

	// Delete removes the primary and every size of id.
	Delete(id uuid.UUID) error

	// NeedsCleaning reports whether any cleanup record is pending.
	NeedsCleaning() (bool, error)

	// Clean retries every pending cleanup record under the cleanup lock.
	Clean(ctx context.Context) error
}

// FileInfo describes a stored file.
type FileInfo struct {
	Width  int
	Height int
	Size   int64
}
