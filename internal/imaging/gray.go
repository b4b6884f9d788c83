package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// Preprocess holds optional adjustments applied before grayscale conversion.
// The zero value leaves the image untouched.
type Preprocess struct {
	// Contrast changes contrast by a percentage in -100..100.
	Contrast float64 `json:"contrast,omitempty"`

	// BlurSigma is the radius of a gaussian blur in pixels; 0 disables it.
	// A light blur helps on noisy sensors; the detector has its own
	// quad_sigma for the same purpose on the decimated image.
	BlurSigma float64 `json:"blur_sigma,omitempty"`
}

// ToGray converts img to an 8-bit grayscale image with origin (0, 0).
func ToGray(img image.Image, pre Preprocess) *image.Gray {
	src := img
	if pre.BlurSigma > 0 {
		src = blur.Gaussian(src, pre.BlurSigma)
	}
	if pre.Contrast != 0 {
		src = adjust.Contrast(src, pre.Contrast/100)
	}

	if g, ok := src.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}

	// imaging.Grayscale writes the luma into R, G and B and rebases bounds to (0, 0).
	nrgba := imaging.Grayscale(src)
	b := nrgba.Bounds()
	gray := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+b.Dx()*4]
		out := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range out {
			out[x] = row[x*4]
		}
	}
	return gray
}
