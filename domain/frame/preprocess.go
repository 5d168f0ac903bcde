package frame

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyRegion reports a zero-area frame or region. Callers must treat it
// as a precondition violation and abort before any inference.
var ErrEmptyRegion = errors.New("empty region")

// Preprocess resizes a region to size x size with Lanczos resampling and
// converts it to a normalized channel-major tensor: for each pixel the
// channel value is scaled from [0,255] to [0,1] and then normalized as
// (v - mean[c]) / std[c]. The output holds all red values, then all green,
// then all blue (length 3*size*size).
func Preprocess(region *image.RGBA, size int, mean, std [3]float64) ([]float32, error) {
	if region == nil || region.Bounds().Dx() <= 0 || region.Bounds().Dy() <= 0 {
		return nil, ErrEmptyRegion
	}
	if size < 1 {
		return nil, errors.New("invalid target size")
	}
	resized := imaging.Resize(region, size, size, imaging.Lanczos)
	return normalize(resized, size, mean, std), nil
}

func normalize(img *image.NRGBA, size int, mean, std [3]float64) []float32 {
	plane := size * size
	out := make([]float32, 3*plane)
	idx := 0
	for y := 0; y < size; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+size*4]
		for x := 0; x < size; x++ {
			i := x * 4
			out[idx] = float32((float64(row[i])/255 - mean[0]) / std[0])
			out[plane+idx] = float32((float64(row[i+1])/255 - mean[1]) / std[1])
			out[2*plane+idx] = float32((float64(row[i+2])/255 - mean[2]) / std[2])
			idx++
		}
	}
	return out
}
