// Package preprocess reconstructs the original's OpenCV adaptive Gaussian
// threshold (cv2.adaptiveThreshold with ADAPTIVE_THRESH_GAUSSIAN_C) using
// disintegration/imaging: grayscale, then a Gaussian blur standing in for
// the per-pixel local-mean estimate, then compare each pixel against its
// local mean minus an offset (§4.4 second pass).
package preprocess

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// Params controls the threshold the same two knobs OpenCV exposes:
// BlockSize (odd, the local neighborhood size) and Offset (the constant C
// subtracted from the local mean).
type Params struct {
	BlockSize int
	Offset    int
}

// AdaptiveThreshold converts img to grayscale and binarizes it: a pixel
// stays white (255) when its gray value exceeds the Gaussian-blurred
// local mean minus Offset, and goes black (0) otherwise. BlockSize sets
// the blur radius that approximates OpenCV's neighborhood window.
func AdaptiveThreshold(img *raster.Image, p Params) *raster.Image {
	gray := toGray(img)
	sigma := float64(p.BlockSize) / 6 // empirical: OpenCV's 51px block ≈ a wide blur, not a sharp-edged box mean.

	blurred := imaging.Blur(gray, sigma)

	out := &raster.Image{Width: img.Width, Height: img.Height, RGB: make([]byte, len(img.RGB))}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			gv := gray.NRGBAAt(x, y).R
			localMean := blurred.NRGBAAt(x, y).R
			var v byte
			if int(gv) > int(localMean)-p.Offset {
				v = 255
			}
			off := (y*img.Width + x) * 3
			out.RGB[off] = v
			out.RGB[off+1] = v
			out.RGB[off+2] = v
		}
	}
	return out
}

// toGray builds an NRGBA whose channels already carry imaging.Grayscale's
// luminance weighting, so later reads of any one channel are the gray
// value.
func toGray(img *raster.Image) *image.NRGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			off := (y*img.Width + x) * 3
			rgba.SetRGBA(x, y, color.RGBA{R: img.RGB[off], G: img.RGB[off+1], B: img.RGB[off+2], A: 255})
		}
	}
	return imaging.Grayscale(rgba)
}
