package imageproc

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownsizePlan(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		boxW, boxH   int
		noChange     bool
		wantW, wantH int
	}{
		{"landscape width bound", 1024, 768, 500, 500, false, 500, 375},
		{"half pixel rounds to even", 1024, 768, 150, 150, false, 150, 112},
		{"portrait height bound", 768, 1024, 500, 500, false, 375, 500},
		{"smaller than box", 100, 50, 200, 200, true, 0, 0},
		{"one side equal to box", 200, 100, 200, 300, false, 200, 100},
		{"exact box", 300, 300, 300, 300, false, 300, 300},
		{"extreme aspect clamps to one pixel", 10000, 1, 100, 100, false, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Downsize{Width: tt.boxW, Height: tt.boxH}.Plan(tt.srcW, tt.srcH, false)
			assert.Equal(t, tt.noChange, plan.NoChange)
			if tt.noChange {
				return
			}
			assert.Equal(t, tt.wantW, plan.Width)
			assert.Equal(t, tt.wantH, plan.Height)
			assert.Equal(t, image.Rect(0, 0, tt.srcW, tt.srcH), plan.Src)
			assert.Equal(t, image.Rect(0, 0, tt.wantW, tt.wantH), plan.Dst)
			assert.False(t, plan.Fill)
		})
	}
}

func TestDownsizeIgnoresTransparency(t *testing.T) {
	plan := Downsize{Width: 200, Height: 200}.Plan(100, 50, true)
	assert.True(t, plan.NoChange)
}

func TestCoverPlan(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		boxW, boxH   int
		transparent  bool
		noChange     bool
		wantW, wantH int
		wantSrc      image.Rectangle
	}{
		{"landscape into square", 1024, 768, 500, 500, false, false, 500, 500, image.Rect(128, 0, 896, 768)},
		{"portrait into square", 768, 1024, 500, 500, false, false, 500, 500, image.Rect(0, 128, 768, 896)},
		{"small source keeps native crop", 300, 200, 500, 500, false, false, 200, 200, image.Rect(50, 0, 250, 200)},
		{"same size opaque", 500, 500, 500, 500, false, true, 0, 0, image.Rectangle{}},
		{"same size transparent", 500, 500, 500, 500, true, false, 500, 500, image.Rect(0, 0, 500, 500)},
		{"same aspect smaller than box", 400, 300, 800, 600, false, true, 0, 0, image.Rectangle{}},
		{"wide box", 1000, 1000, 400, 100, false, false, 400, 100, image.Rect(0, 375, 1000, 625)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Cover{Width: tt.boxW, Height: tt.boxH}.Plan(tt.srcW, tt.srcH, tt.transparent)
			assert.Equal(t, tt.noChange, plan.NoChange)
			if tt.noChange {
				return
			}
			assert.Equal(t, tt.wantW, plan.Width)
			assert.Equal(t, tt.wantH, plan.Height)
			assert.Equal(t, tt.wantSrc, plan.Src)
			assert.Equal(t, image.Rect(0, 0, tt.wantW, tt.wantH), plan.Dst)
			assert.Equal(t, tt.transparent, plan.Fill)
		})
	}
}

func TestPadPlan(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		boxW, boxH   int
		transparent  bool
		noChange     bool
		wantW, wantH int
		wantDst      image.Rectangle
	}{
		{"large square box shrinks to source", 1024, 768, 2000, 2000, false, false, 1024, 1024, image.Rect(0, 128, 1024, 896)},
		{"large box with source aspect", 1024, 768, 2048, 1536, false, true, 0, 0, image.Rectangle{}},
		{"large box with source aspect transparent", 1024, 768, 2048, 1536, true, false, 1024, 768, image.Rect(0, 0, 1024, 768)},
		{"square box", 1024, 768, 500, 500, false, false, 500, 500, image.Rect(0, 62, 500, 437)},
		{"wide box", 1024, 768, 2000, 100, false, false, 2000, 100, image.Rect(933, 0, 1066, 100)},
		{"tall large box", 100, 100, 200, 400, false, false, 100, 200, image.Rect(0, 50, 100, 150)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Pad{Width: tt.boxW, Height: tt.boxH}.Plan(tt.srcW, tt.srcH, tt.transparent)
			assert.Equal(t, tt.noChange, plan.NoChange)
			if tt.noChange {
				return
			}
			assert.Equal(t, tt.wantW, plan.Width)
			assert.Equal(t, tt.wantH, plan.Height)
			assert.Equal(t, image.Rect(0, 0, tt.srcW, tt.srcH), plan.Src)
			assert.Equal(t, tt.wantDst, plan.Dst)
			assert.True(t, plan.Fill)
		})
	}
}

func TestMaxSizePlan(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		boxW, boxH   int
		transparent  bool
		noChange     bool
		wantW, wantH int
	}{
		{"fits opaque", 1024, 768, 2000, 2000, false, true, 0, 0},
		{"fits transparent", 1024, 768, 2000, 2000, true, false, 1024, 768},
		{"exact fit opaque", 500, 500, 500, 500, false, true, 0, 0},
		{"too large", 1024, 768, 500, 500, false, false, 500, 375},
		{"too large transparent", 1024, 768, 150, 150, true, false, 150, 112},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := MaxSize{Width: tt.boxW, Height: tt.boxH}.Plan(tt.srcW, tt.srcH, tt.transparent)
			assert.Equal(t, tt.noChange, plan.NoChange)
			if tt.noChange {
				return
			}
			assert.Equal(t, tt.wantW, plan.Width)
			assert.Equal(t, tt.wantH, plan.Height)
			assert.Equal(t, image.Rect(0, 0, tt.wantW, tt.wantH), plan.Dst)
			assert.True(t, plan.Fill)
		})
	}
}
