package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestToPanel(t *testing.T) {
	t.Run("matching size is returned as-is", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 10, 6))
		if got := ToPanel(img, 10, 6); got != image.Image(img) {
			t.Error("expected the original image back for matching geometry")
		}
	})

	t.Run("resizes to panel geometry", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 100, 60))
		got := ToPanel(img, 10, 6)
		if b := got.Bounds(); b.Dx() != 10 || b.Dy() != 6 {
			t.Errorf("got %dx%d, want 10x6", b.Dx(), b.Dy())
		}
	})

	t.Run("nearest keeps hard edges", func(t *testing.T) {
		// Left half black, right half white, downscaled 2x: no pixel may
		// land on an intermediate gray.
		img := image.NewRGBA(image.Rect(0, 0, 8, 2))
		for y := 0; y < 2; y++ {
			for x := 0; x < 8; x++ {
				c := color.RGBA{255, 255, 255, 255}
				if x < 4 {
					c = color.RGBA{0, 0, 0, 255}
				}
				img.SetRGBA(x, y, c)
			}
		}
		small := ToPanel(img, 4, 1)
		for x := 0; x < 4; x++ {
			r, g, b, _ := small.At(x, 0).RGBA()
			if !(r == 0 && g == 0 && b == 0) && !(r == 0xFFFF && g == 0xFFFF && b == 0xFFFF) {
				t.Errorf("pixel %d: got intermediate color (%d,%d,%d)", x, r>>8, g>>8, b>>8)
			}
		}
	})
}

func TestInvert(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{255, 40, 200, 255})

	inv := Invert(img)

	if got := inv.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("got %v, want white for inverted black", got)
	}
	if got := inv.RGBAAt(1, 0); got != (color.RGBA{0, 215, 55, 255}) {
		t.Errorf("got %v, want (0,215,55,255)", got)
	}
}

func TestRotate90(t *testing.T) {
	// 3x2 grid with a single black pixel at the top-right corner.
	c := NewClassifiedImage(3, 2)
	c.Set(2, 0, Black)

	r := c.Rotate90()

	if r.Width != 2 || r.Height != 3 {
		t.Fatalf("got %dx%d, want 2x3", r.Width, r.Height)
	}
	// A counter-clockwise quarter turn moves the top-right corner to the
	// top-left.
	if r.At(0, 0) != Black {
		t.Errorf("got %v at (0,0), want black", r.At(0, 0))
	}
	if r.Count(Black) != 1 {
		t.Errorf("got %d black cells, want 1", r.Count(Black))
	}
}

func TestRotate180RoundTrip(t *testing.T) {
	c := NewClassifiedImage(4, 3)
	c.Set(0, 0, Black)
	c.Set(3, 2, Red)
	c.Set(1, 1, Red)

	twice := c.Rotate180().Rotate180()

	if twice.Width != c.Width || twice.Height != c.Height {
		t.Fatalf("dimensions changed: %dx%d", twice.Width, twice.Height)
	}
	for i := range c.Labels {
		if c.Labels[i] != twice.Labels[i] {
			t.Errorf("cell %d: got %v, want %v", i, twice.Labels[i], c.Labels[i])
		}
	}
}

func TestRotate180(t *testing.T) {
	c := NewClassifiedImage(4, 3)
	c.Set(1, 0, Black)

	r := c.Rotate180()

	if r.At(2, 2) != Black {
		t.Errorf("got %v at (2,2), want black", r.At(2, 2))
	}
	if r.At(1, 0) != White {
		t.Errorf("got %v at (1,0), want white", r.At(1, 0))
	}
}

func TestOrientOrder(t *testing.T) {
	// Portrait then topdown: a quarter turn followed by a half turn is a
	// three-quarter turn, which moves the top-left corner to the top-right
	// of the transposed grid.
	c := NewClassifiedImage(3, 2)
	c.Set(0, 0, Red)

	o := c.Orient(true, true)

	if o.Width != 2 || o.Height != 3 {
		t.Fatalf("got %dx%d, want 2x3", o.Width, o.Height)
	}
	// Quarter turn: (0,0) -> (0,2). Half turn on 2x3: (0,2) -> (1,0).
	if o.At(1, 0) != Red {
		t.Errorf("got %v at (1,0), want red", o.At(1, 0))
	}

	t.Run("no flags is identity", func(t *testing.T) {
		o := c.Orient(false, false)
		if o != c {
			t.Error("expected the same grid back when both flags are off")
		}
	})
}

// Count returns the number of cells carrying the given label. Test helper.
func (c *ClassifiedImage) Count(l Label) int {
	n := 0
	for _, got := range c.Labels {
		if got == l {
			n++
		}
	}
	return n
}
