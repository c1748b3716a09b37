package imageproc

import (
	"image"
	"math"
)

// Plan describes how an editor maps a source image onto its output.
//
// When NoChange is set the source already satisfies the target and the other
// fields are unset. Otherwise the output is Width x Height; the Src rectangle
// of the source is scaled into the Dst rectangle of the output, and Fill
// requests the rest of the output (and any transparency) be painted with the
// editor's background.
type Plan struct {
	NoChange bool
	Width    int
	Height   int
	Src      image.Rectangle
	Dst      image.Rectangle
	Fill     bool
}

// scale returns round(a*b/c) with half-to-even rounding, never below 1.
func scale(a, b, c int) int {
	v := int(math.RoundToEven(float64(a) * float64(b) / float64(c)))
	if v < 1 {
		return 1
	}
	return v
}

// fitWithin returns the largest size with the aspect ratio of w x h that fits
// in boxW x boxH, with at least one side equal to the box.
func fitWithin(w, h, boxW, boxH int) (int, int) {
	// w/boxW >= h/boxH means the width is the binding side.
	if w*boxH >= h*boxW {
		return boxW, scale(h, boxW, w)
	}
	return scale(w, boxH, h), boxH
}

func planDownsize(srcW, srcH, boxW, boxH int) Plan {
	if srcW < boxW && srcH < boxH {
		return Plan{NoChange: true}
	}
	w, h := fitWithin(srcW, srcH, boxW, boxH)
	return Plan{
		Width:  w,
		Height: h,
		Src:    image.Rect(0, 0, srcW, srcH),
		Dst:    image.Rect(0, 0, w, h),
	}
}

func planCover(srcW, srcH, boxW, boxH int, transparent bool) Plan {
	var crop image.Rectangle
	if srcW*boxH >= srcH*boxW {
		cropW := min(scale(srcH, boxW, boxH), srcW)
		x := (srcW - cropW) / 2
		crop = image.Rect(x, 0, x+cropW, srcH)
	} else {
		cropH := min(scale(srcW, boxH, boxW), srcH)
		y := (srcH - cropH) / 2
		crop = image.Rect(0, y, srcW, y+cropH)
	}

	outW, outH := boxW, boxH
	if crop.Dx() < boxW || crop.Dy() < boxH {
		outW, outH = crop.Dx(), crop.Dy()
	}
	if outW == srcW && outH == srcH && !transparent {
		return Plan{NoChange: true}
	}
	return Plan{
		Width:  outW,
		Height: outH,
		Src:    crop,
		Dst:    image.Rect(0, 0, outW, outH),
		Fill:   transparent,
	}
}

func planPad(srcW, srcH, boxW, boxH int, transparent bool) Plan {
	outW, outH := boxW, boxH
	// A box that would enlarge the source shrinks, keeping its own aspect
	// ratio, until the source fits it at native size.
	if boxW*srcH > srcW*boxH {
		if boxH > srcH {
			outW, outH = scale(boxW, srcH, boxH), srcH
		}
	} else if boxW > srcW {
		outW, outH = srcW, scale(boxH, srcW, boxW)
	}

	w, h := fitWithin(srcW, srcH, outW, outH)
	x := (outW - w) / 2
	y := (outH - h) / 2
	if outW == srcW && outH == srcH && !transparent {
		return Plan{NoChange: true}
	}
	return Plan{
		Width:  outW,
		Height: outH,
		Src:    image.Rect(0, 0, srcW, srcH),
		Dst:    image.Rect(x, y, x+w, y+h),
		Fill:   true,
	}
}

func planMaxSize(srcW, srcH, boxW, boxH int, transparent bool) Plan {
	fits := srcW <= boxW && srcH <= boxH
	if fits && !transparent {
		return Plan{NoChange: true}
	}
	w, h := srcW, srcH
	if !fits {
		w, h = fitWithin(srcW, srcH, boxW, boxH)
	}
	return Plan{
		Width:  w,
		Height: h,
		Src:    image.Rect(0, 0, srcW, srcH),
		Dst:    image.Rect(0, 0, w, h),
		Fill:   true,
	}
}
