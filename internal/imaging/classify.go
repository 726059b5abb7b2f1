// Package imaging converts a raw browser capture into the two one-bit ink
// planes a black/red e-paper panel expects: resize to the panel geometry,
// collapse every pixel to black, red or white, apply the mounting
// orientation, and split the result into independent bit planes.
package imaging

import (
	"image"
	"image/color"
)

// Label identifies which of the panel's three renderable colors a pixel
// maps to.
type Label uint8

const (
	White Label = iota
	Black
	Red
)

func (l Label) String() string {
	switch l {
	case Black:
		return "black"
	case Red:
		return "red"
	default:
		return "white"
	}
}

// Classification thresholds, inclusive. Anti-aliased fringe pixels around
// text and lines are neither pure black nor pure red; these bounds fold
// them into one of the two inks or into white, never leaving an ambiguous
// intermediate value.
const (
	blackRedMax = 230 // highest red channel still classified as black ink
	redRedMin   = 230 // lowest red channel classified as red ink
	inkGreenMax = 135
	inkBlueMax  = 135
)

// ClassifiedImage is a pixel grid where every pixel carries exactly one
// Label. Labels are stored row-major.
type ClassifiedImage struct {
	Width  int
	Height int
	Labels []Label
}

// NewClassifiedImage creates an all-white grid of the given geometry.
func NewClassifiedImage(width, height int) *ClassifiedImage {
	return &ClassifiedImage{
		Width:  width,
		Height: height,
		Labels: make([]Label, width*height),
	}
}

// At returns the label at (x, y).
func (c *ClassifiedImage) At(x, y int) Label {
	return c.Labels[y*c.Width+x]
}

// Set sets the label at (x, y).
func (c *ClassifiedImage) Set(x, y int, l Label) {
	c.Labels[y*c.Width+x] = l
}

// ClassifyPixel maps one RGB triple to its label. The black test runs
// first, so a triple on the shared red-channel bound resolves to black.
func ClassifyPixel(r, g, b uint8) Label {
	if r <= blackRedMax && g <= inkGreenMax && b <= inkBlueMax {
		return Black
	}
	if r >= redRedMin && g <= inkGreenMax && b <= inkBlueMax {
		return Red
	}
	return White
}

// Classify labels every pixel of img independently.
func Classify(img image.Image) *ClassifiedImage {
	bounds := img.Bounds()
	out := NewClassifiedImage(bounds.Dx(), bounds.Dy())

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out.Labels[i] = ClassifyPixel(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			i++
		}
	}
	return out
}

// Render draws the grid back to an RGB image using the pure panel colors.
func (c *ClassifiedImage) Render() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			var px color.RGBA
			switch c.At(x, y) {
			case Black:
				px = color.RGBA{0, 0, 0, 255}
			case Red:
				px = color.RGBA{255, 0, 0, 255}
			default:
				px = color.RGBA{255, 255, 255, 255}
			}
			out.SetRGBA(x, y, px)
		}
	}
	return out
}
