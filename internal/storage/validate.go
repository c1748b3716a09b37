package storage

import (
	"fmt"

	"github.com/leca/dt-image-store/internal/imageproc"
)

// Validator inspects an image header before the image is fully decoded.
// Returning a non-nil error rejects the image; the reason is wrapped in
// ErrValidationRejected.
type Validator func(imageproc.Header) error

// MaxPixels rejects images whose width*height exceeds n.
func MaxPixels(n int64) Validator {
	return func(h imageproc.Header) error {
		if h.Pixels() > n {
			return fmt.Errorf("%dx%d exceeds %d pixels", h.Width, h.Height, n)
		}
		return nil
	}
}

// MaxDimensions rejects images wider than w or taller than h.
func MaxDimensions(w, h int) Validator {
	return func(hdr imageproc.Header) error {
		if hdr.Width > w || hdr.Height > h {
			return fmt.Errorf("%dx%d exceeds %dx%d", hdr.Width, hdr.Height, w, h)
		}
		return nil
	}
}

// All runs validators in order and stops at the first rejection. Nil
// validators are skipped.
func All(validators ...Validator) Validator {
	return func(h imageproc.Header) error {
		for _, v := range validators {
			if v == nil {
				continue
			}
			if err := v(h); err != nil {
				return err
			}
		}
		return nil
	}
}
