package sampler

import (
	"image"
	"math"
)

const histogramBins = 64

// luminanceHistogram computes a normalized grayscale histogram of img.
func luminanceHistogram(img image.Image) [histogramBins]float64 {
	var hist [histogramBins]float64
	bounds := img.Bounds()
	total := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels scaled to bin index.
			luma := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
			bin := int(luma / 65536.0 * histogramBins)
			if bin >= histogramBins {
				bin = histogramBins - 1
			}
			hist[bin]++
			total++
		}
	}

	if total > 0 {
		for i := range hist {
			hist[i] /= float64(total)
		}
	}
	return hist
}

// changeRatio measures visual change between two histograms as
// 1 - max(0, correlation). Identical frames score 0, unrelated frames
// approach 1.
func changeRatio(a, b [histogramBins]float64) float64 {
	var meanA, meanB float64
	for i := 0; i < histogramBins; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= histogramBins
	meanB /= histogramBins

	var num, denA, denB float64
	for i := 0; i < histogramBins; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		denA += da * da
		denB += db * db
	}

	if denA == 0 || denB == 0 {
		// A flat histogram correlates with nothing; treat equal flats as
		// unchanged and anything else as fully changed.
		if denA == 0 && denB == 0 {
			return 0
		}
		return 1
	}

	corr := num / math.Sqrt(denA*denB)
	return 1 - math.Max(0, corr)
}
