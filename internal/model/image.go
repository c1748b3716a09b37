package model

import "time"

// Image is the catalog record for a stored primary image.
type Image struct {
	Key      ImageKey  `json:"id"`
	Filename string    `json:"filename"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	FileSize int64     `json:"fileSize"`
	Uploaded time.Time `json:"uploaded"`
	Sizes    []Size    `json:"sizes"`
}

// Size is a named rendition derived from a primary image.
type Size struct {
	Name     string    `json:"name"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	FileSize int64     `json:"fileSize"`
	Created  time.Time `json:"created"`
}

// SizePreset is a named transformation used to derive sizes.
type SizePreset struct {
	Name    string        `json:"name"`
	Options PresetOptions `json:"options"`
}

// PresetOptions holds the transformation parameters for a preset.
type PresetOptions struct {
	Fit        string `json:"fit"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background,omitempty"`
	Quality    int    `json:"quality,omitempty"`
}
