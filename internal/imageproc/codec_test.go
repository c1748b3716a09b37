package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeJPEG(&buf, img, quality))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// noisyImage returns a deterministic image with enough detail that JPEG
// quality visibly changes the encoded size.
func noisyImage(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewPCG(1, 2))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{
				R: uint8(x*255/w) ^ uint8(rng.IntN(64)),
				G: uint8(y*255/h) ^ uint8(rng.IntN(64)),
				B: uint8(rng.IntN(256)),
				A: 255,
			})
		}
	}
	return img
}

func TestDecodeHeader(t *testing.T) {
	h, err := DecodeHeader(encodeJPEG(t, solidYCbCr(64, 32), 90))
	require.NoError(t, err)
	assert.Equal(t, Header{Width: 64, Height: 32, Format: "jpeg"}, h)
	assert.Equal(t, int64(2048), h.Pixels())

	h, err = DecodeHeader(encodePNG(t, solidImage(10, 20, color.NRGBA{A: 128})))
	require.NoError(t, err)
	assert.Equal(t, "png", h.Format)
	assert.True(t, h.Transparent)

	var buf bytes.Buffer
	palette := color.Palette{color.White, color.Black}
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 4, 4), palette), nil))
	h, err = DecodeHeader(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "gif", h.Format)
	assert.True(t, h.Transparent)
}

func TestDecodeHeader_Invalid(t *testing.T) {
	_, err := DecodeHeader([]byte("hello world"))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = Decode([]byte{0xFF, 0xD8, 0xFF})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDecode(t *testing.T) {
	img, err := Decode(encodeJPEG(t, solidYCbCr(40, 30), 90))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	assert.False(t, MightHaveTransparency(img.ColorModel()))
}

func TestMightHaveTransparency(t *testing.T) {
	assert.True(t, MightHaveTransparency(color.NRGBAModel))
	assert.True(t, MightHaveTransparency(color.RGBAModel))
	assert.True(t, MightHaveTransparency(color.RGBA64Model))
	assert.True(t, MightHaveTransparency(color.AlphaModel))
	assert.True(t, MightHaveTransparency(color.Palette{color.Black}))
	assert.False(t, MightHaveTransparency(color.YCbCrModel))
	assert.False(t, MightHaveTransparency(color.GrayModel))
	assert.False(t, MightHaveTransparency(color.CMYKModel))
}

func TestEncodeJPEG_QualityOrdering(t *testing.T) {
	img := noisyImage(128, 128)
	var sizes []int
	for _, q := range []int{100, 75, 50, 25} {
		sizes = append(sizes, len(encodeJPEG(t, img, q)))
	}
	for i := 1; i < len(sizes); i++ {
		assert.Greater(t, sizes[i-1], sizes[i], "sizes %v", sizes)
	}
}

func TestEncodeJPEG_FlattensOntoWhite(t *testing.T) {
	data := encodeJPEG(t, solidImage(16, 16, color.NRGBA{}), 95)
	img, err := Decode(data)
	require.NoError(t, err)
	assertColorNear(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.At(8, 8))
}

func TestEncodeJPEG_DefaultQuality(t *testing.T) {
	img := noisyImage(64, 64)
	assert.Equal(t, encodeJPEG(t, img, DefaultQuality), encodeJPEG(t, img, 0))
	assert.Equal(t, encodeJPEG(t, img, DefaultQuality), encodeJPEG(t, img, 101))
}
