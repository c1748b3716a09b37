package imageproc

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Transform is a clockwise rotation followed by an optional horizontal flip.
type Transform struct {
	Rotate int
	FlipX  bool
}

// Identity reports whether t leaves the image untouched.
func (t Transform) Identity() bool {
	return t.Rotate == 0 && !t.FlipX
}

// Orientation maps an EXIF orientation code to the transform that brings the
// image upright. Codes outside 1..8 map to the identity.
func Orientation(code int) Transform {
	switch code {
	case 2:
		return Transform{FlipX: true}
	case 3:
		return Transform{Rotate: 180}
	case 4:
		return Transform{Rotate: 180, FlipX: true}
	case 5:
		return Transform{Rotate: 90, FlipX: true}
	case 6:
		return Transform{Rotate: 90}
	case 7:
		return Transform{Rotate: 270, FlipX: true}
	case 8:
		return Transform{Rotate: 270}
	default:
		return Transform{}
	}
}

// ReadOrientation returns the EXIF orientation code of an encoded image, or 1
// when the image has no readable orientation tag.
func ReadOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// Normalize applies t to img. imaging rotates counter-clockwise, so a
// clockwise quarter turn is imaging.Rotate270 and vice versa.
func Normalize(img image.Image, t Transform) image.Image {
	if t.Identity() {
		return img
	}
	switch t.Rotate {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	}
	if t.FlipX {
		img = imaging.FlipH(img)
	}
	return img
}
