package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 85

// ErrInvalidFormat is returned when data is not a decodable image.
var ErrInvalidFormat = errors.New("invalid image format")

// Header is what can be learned about an image without decoding its pixels.
type Header struct {
	Width       int
	Height      int
	Format      string
	Transparent bool
}

// Pixels returns the pixel count the full decode would allocate for.
func (h Header) Pixels() int64 {
	return int64(h.Width) * int64(h.Height)
}

// DecodeHeader reads only the image header. It never allocates the pixel
// buffer, so it is safe to run on untrusted input before any size check.
func DecodeHeader(data []byte) (Header, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return Header{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      format,
		Transparent: MightHaveTransparency(cfg.ColorModel),
	}, nil
}

// Decode fully decodes data. EXIF orientation is not applied.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return img, nil
}

// MightHaveTransparency reports whether a color model is indexed or carries
// an alpha channel, premultiplied or not.
func MightHaveTransparency(m color.Model) bool {
	if _, ok := m.(color.Palette); ok {
		return true
	}
	switch m {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model,
		color.AlphaModel, color.Alpha16Model:
		return true
	}
	return false
}

// EncodeJPEG writes img as a JPEG. Quality outside 1..100 is replaced by
// DefaultQuality. Images that are not opaque are flattened onto white first
// because JPEG has no alpha channel.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		b := img.Bounds()
		img = imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Point{}, 1.0)
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("encoding jpeg: %w", err)
	}
	return nil
}
