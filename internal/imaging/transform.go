package imaging

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// ToPanel scales img to the panel geometry. Nearest-neighbor resampling
// keeps the hard edges the classifier depends on; smoother filters would
// reintroduce the fringe colors the thresholds exist to remove.
func ToPanel(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.NearestNeighbor)
}

// Invert returns the luminance negative of img. The panel's default
// surface is treated as the inverse polarity of the page, so the negative
// is taken on the raw capture before classification.
func Invert(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{
				R: 255 - uint8(r>>8),
				G: 255 - uint8(g>>8),
				B: 255 - uint8(b>>8),
				A: 255,
			})
		}
	}
	return out
}

// Rotate90 returns the grid rotated a quarter turn counter-clockwise.
// The result is Height x Width.
func (c *ClassifiedImage) Rotate90() *ClassifiedImage {
	out := NewClassifiedImage(c.Height, c.Width)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			// (x, y) lands at (y, Width-1-x) under a quarter turn.
			out.Set(y, c.Width-1-x, c.At(x, y))
		}
	}
	return out
}

// Rotate180 returns the grid rotated a half turn. Dimensions are
// preserved, and applying it twice is the identity.
func (c *ClassifiedImage) Rotate180() *ClassifiedImage {
	out := NewClassifiedImage(c.Width, c.Height)
	n := len(c.Labels)
	for i, l := range c.Labels {
		out.Labels[n-1-i] = l
	}
	return out
}

// Orient applies the panel mounting corrections in their fixed order:
// the portrait quarter turn first, then the topdown half turn. The two
// flags are independent mounting corrections, not cumulative rotations.
func (c *ClassifiedImage) Orient(portrait, topdown bool) *ClassifiedImage {
	out := c
	if portrait {
		out = out.Rotate90()
	}
	if topdown {
		out = out.Rotate180()
	}
	return out
}
