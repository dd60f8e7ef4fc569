// Package preprocess converts a drawing surface into the classifier's input
// tensor.
package preprocess

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
	"gorgonia.org/tensor"
)

// InputSize is the side length of the square model input.
const InputSize = 64

// ErrEmptySurface is returned for a zero-sized source image.
var ErrEmptySurface = errors.New("empty drawing surface")

// Shape is the tensor shape Normalize produces: batch, height, width, channel.
var Shape = tensor.Shape{1, InputSize, InputSize, 1}

// Normalize resamples src to InputSize x InputSize over a white background
// and returns ink density per pixel: (255 - mean(R, G, B)) / 255. Blank
// background maps to 0 and solid ink to 1.
func Normalize(src image.Image) (*tensor.Dense, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptySurface
	}

	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	data := make([]float32, InputSize*InputSize)
	for i := range data {
		px := dst.Pix[i*4 : i*4+3]
		avg := (float64(px[0]) + float64(px[1]) + float64(px[2])) / 3
		data[i] = float32((255 - avg) / 255)
	}

	return tensor.New(tensor.WithShape(1, InputSize, InputSize, 1), tensor.WithBacking(data)), nil
}

// Values returns the backing data of a tensor produced by Normalize, in
// row-major height, width order.
func Values(t *tensor.Dense) []float32 {
	v, _ := t.Data().([]float32)
	return v
}
