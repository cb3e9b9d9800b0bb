package sampler

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestEncodeFrame_SmallImageUnscaled(t *testing.T) {
	img := uniformImage(640, 480, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	data, w, h, size, err := encodeFrame(img, 85, 2048)
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Greater(t, size, 0)

	decoded, err := base64.StdEncoding.DecodeString(data)
	require.NoError(t, err)
	assert.Len(t, decoded, size)
	// JPEG magic bytes.
	assert.Equal(t, byte(0xFF), decoded[0])
	assert.Equal(t, byte(0xD8), decoded[1])
}

func TestEncodeFrame_DownscalesLargeImage(t *testing.T) {
	img := uniformImage(4096, 2160, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	_, w, h, _, err := encodeFrame(img, 85, 2048)
	require.NoError(t, err)
	assert.Equal(t, 2048, w)
	assert.Equal(t, 1080, h)
}

func TestDownscale_PreservesAspectRatio(t *testing.T) {
	img := uniformImage(3000, 1000, color.RGBA{A: 255})
	out := downscale(img, 1500)
	assert.Equal(t, 1500, out.Bounds().Dx())
	assert.Equal(t, 500, out.Bounds().Dy())
}

func TestDownscale_NoopWhenDisabled(t *testing.T) {
	img := uniformImage(3000, 1000, color.RGBA{A: 255})
	out := downscale(img, 0)
	assert.Equal(t, 3000, out.Bounds().Dx())
}

func TestChangeRatio_IdenticalFrames(t *testing.T) {
	img := uniformImage(32, 32, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	a := luminanceHistogram(img)
	b := luminanceHistogram(img)
	assert.InDelta(t, 0.0, changeRatio(a, b), 0.001)
}

func TestChangeRatio_DifferentFrames(t *testing.T) {
	dark := luminanceHistogram(uniformImage(32, 32, color.RGBA{A: 255}))
	light := luminanceHistogram(uniformImage(32, 32, color.RGBA{R: 255, G: 255, B: 255, A: 255}))
	assert.Greater(t, changeRatio(dark, light), 0.5)
}
