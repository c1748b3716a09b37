package imageproc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrInvalidEditor is returned for editors with unusable parameters.
var ErrInvalidEditor = errors.New("invalid editor")

// Fit names accepted by EditorFor.
const (
	FitDownsize = "downsize"
	FitCover    = "cover"
	FitPad      = "pad"
	FitMaxSize  = "max-size"
)

// Editor is a resize policy. The set is closed: Downsize, Cover, Pad and
// MaxSize are the only implementations.
type Editor interface {
	// Plan computes the geometry for a srcW x srcH source. transparent
	// reports whether the source might carry an alpha channel.
	Plan(srcW, srcH int, transparent bool) Plan
	// Background is the color painted where the plan requests a fill.
	Background() color.Color
	// Fit returns the policy name as accepted by EditorFor.
	Fit() string
	// Validate reports whether the box dimensions are usable.
	Validate() error

	sealed()
}

// Downsize shrinks the source to fit inside the box. It never enlarges.
type Downsize struct {
	Width, Height int
}

// Cover fills the box exactly by center-cropping the source. It never
// enlarges; a source smaller than the box yields the largest crop with the
// box's aspect ratio at native size.
type Cover struct {
	Width, Height int
}

// Pad fits the source inside the box and pads it out to the box's aspect
// ratio with Color, centered.
type Pad struct {
	Width, Height int
	Color         color.Color
}

// MaxSize shrinks the source to fit inside the box and flattens any
// transparency against Color.
type MaxSize struct {
	Width, Height int
	Color         color.Color
}

func (e Downsize) Plan(srcW, srcH int, _ bool) Plan {
	return planDownsize(srcW, srcH, e.Width, e.Height)
}

func (e Cover) Plan(srcW, srcH int, transparent bool) Plan {
	return planCover(srcW, srcH, e.Width, e.Height, transparent)
}

func (e Pad) Plan(srcW, srcH int, transparent bool) Plan {
	return planPad(srcW, srcH, e.Width, e.Height, transparent)
}

func (e MaxSize) Plan(srcW, srcH int, transparent bool) Plan {
	return planMaxSize(srcW, srcH, e.Width, e.Height, transparent)
}

func (Downsize) Background() color.Color { return color.White }
func (Cover) Background() color.Color    { return color.White }
func (e Pad) Background() color.Color     { return orWhite(e.Color) }
func (e MaxSize) Background() color.Color { return orWhite(e.Color) }

func (Downsize) Fit() string { return FitDownsize }
func (Cover) Fit() string    { return FitCover }
func (Pad) Fit() string      { return FitPad }
func (MaxSize) Fit() string  { return FitMaxSize }

func (e Downsize) Validate() error { return validateBox(e.Width, e.Height) }
func (e Cover) Validate() error    { return validateBox(e.Width, e.Height) }
func (e Pad) Validate() error      { return validateBox(e.Width, e.Height) }
func (e MaxSize) Validate() error  { return validateBox(e.Width, e.Height) }

func (Downsize) sealed() {}
func (Cover) sealed()    {}
func (Pad) sealed()      {}
func (MaxSize) sealed()  {}

func validateBox(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: box %dx%d must be positive", ErrInvalidEditor, w, h)
	}
	return nil
}

func orWhite(c color.Color) color.Color {
	if c == nil {
		return color.White
	}
	return c
}

// EditorFor builds an editor from its fit name. background is a hex color
// ("#rrggbb" or "rrggbb") and may be empty for white.
func EditorFor(fit string, width, height int, background string) (Editor, error) {
	bg, err := ParseColor(background)
	if err != nil {
		return nil, err
	}
	var e Editor
	switch strings.ToLower(strings.TrimSpace(fit)) {
	case FitDownsize:
		e = Downsize{Width: width, Height: height}
	case FitCover, "crop":
		e = Cover{Width: width, Height: height}
	case FitPad:
		e = Pad{Width: width, Height: height, Color: bg}
	case FitMaxSize:
		e = MaxSize{Width: width, Height: height, Color: bg}
	default:
		return nil, fmt.Errorf("%w: unknown fit %q", ErrInvalidEditor, fit)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseColor parses "#rrggbb" or "rrggbb". An empty string yields white.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return color.White, nil
	}
	var r, g, b uint8
	if len(s) != 6 {
		return nil, fmt.Errorf("%w: background %q is not #rrggbb", ErrInvalidEditor, s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, fmt.Errorf("%w: background %q: %v", ErrInvalidEditor, s, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// Apply realizes e's plan for img. It returns img itself when the plan is
// NoChange.
func Apply(img image.Image, e Editor, transparent bool) image.Image {
	b := img.Bounds()
	plan := e.Plan(b.Dx(), b.Dy(), transparent)
	if plan.NoChange {
		return img
	}

	src := img
	if plan.Src != image.Rect(0, 0, b.Dx(), b.Dy()) {
		src = imaging.Crop(img, plan.Src.Add(b.Min))
	}
	scaled := src
	if plan.Dst.Dx() != plan.Src.Dx() || plan.Dst.Dy() != plan.Src.Dy() {
		scaled = imaging.Resize(src, plan.Dst.Dx(), plan.Dst.Dy(), imaging.Lanczos)
	}

	// Plans without a fill always place the scaled source at the origin
	// covering the whole output.
	if !plan.Fill {
		return imaging.Clone(scaled)
	}
	canvas := imaging.New(plan.Width, plan.Height, e.Background())
	return imaging.Overlay(canvas, scaled, plan.Dst.Min, 1.0)
}
