package database

import (
	"errors"

	"github.com/google/uuid"
	"github.com/leca/dt-image-store/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a row with the same key already exists.
	ErrExists = errors.New("already exists")
)

// Database is the catalog of stored images, their sizes and the size presets
// used to derive them. The files themselves live in storage; the catalog only
// records what was written.
type Database interface {
	// Images
	CreateImage(img *model.Image) error
	GetImage(id uuid.UUID) (*model.Image, error)
	ListImages(page, perPage int) ([]*model.Image, int, error)
	DeleteImage(id uuid.UUID) error
	CountImages() (int, error)

	// Sizes
	PutSize(id uuid.UUID, size *model.Size) error
	ListSizes(id uuid.UUID) ([]model.Size, error)

	// Size presets
	CreatePreset(p *model.SizePreset) error
	GetPreset(name string) (*model.SizePreset, error)
	ListPresets() ([]*model.SizePreset, error)
	UpdatePreset(p *model.SizePreset) error
	DeletePreset(name string) error
	CountPresets() (int, error)

	Close() error
}
