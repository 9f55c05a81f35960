package validity

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/stat"
)

// SharpnessCheck rejects blurred or homogeneous patches by the variance of
// their Sobel gradient magnitude.
type SharpnessCheck struct {
	MinVariance float64 // Gradient magnitude variance below this is rejected
}

// NewSharpnessCheck creates a sharpness check with default settings
func NewSharpnessCheck() *SharpnessCheck {
	return &SharpnessCheck{
		MinVariance: 25.0, // Flat background and heavy blur both sit well below
	}
}

func (s *SharpnessCheck) Name() string { return "sharpness" }

// Check passes when the patch has enough edge structure.
func (s *SharpnessCheck) Check(img image.Image) bool {
	return s.Variance(img) >= s.MinVariance
}

// Variance returns the variance of the gradient magnitude over the patch
// interior. Patches smaller than 3x3 have no interior and score 0.
func (s *SharpnessCheck) Variance(img image.Image) float64 {
	gray := toGrayscale(img)
	mags := sobelMagnitudes(gray)
	if len(mags) < 2 {
		return 0
	}
	return stat.Variance(mags, nil)
}

// toGrayscale converts an image to grayscale
func toGrayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}

	return gray
}

// sobelMagnitudes applies the Sobel operator and returns the gradient
// magnitude of every interior pixel
func sobelMagnitudes(gray *image.Gray) []float64 {
	bounds := gray.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return nil
	}

	// Sobel kernels
	gx := [][]int{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	gy := [][]int{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	mags := make([]float64, 0, (bounds.Dx()-2)*(bounds.Dy()-2))
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			var sumX, sumY float64

			// Apply convolution
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					pixel := float64(gray.GrayAt(x+kx, y+ky).Y)
					sumX += pixel * float64(gx[ky+1][kx+1])
					sumY += pixel * float64(gy[ky+1][kx+1])
				}
			}

			mags = append(mags, math.Sqrt(sumX*sumX+sumY*sumY))
		}
	}

	return mags
}
