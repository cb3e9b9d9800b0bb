package sampler

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	"github.com/rotisserie/eris"
	"golang.org/x/image/draw"
)

// encodeFrame downscales img so its longest side is at most maxDimension
// and returns the base64-encoded JPEG plus final dimensions and byte size.
func encodeFrame(img image.Image, quality, maxDimension int) (data string, width, height, size int, err error) {
	img = downscale(img, maxDimension)
	bounds := img.Bounds()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", 0, 0, 0, eris.Wrap(err, "sampler: encode jpeg")
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()),
		bounds.Dx(), bounds.Dy(), buf.Len(), nil
}

// downscale resizes img proportionally so that max(width, height) does not
// exceed maxDimension. Images within bounds are returned unchanged.
func downscale(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDimension {
		return img
	}

	scale := float64(maxDimension) / float64(longest)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
