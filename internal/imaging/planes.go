package imaging

// BitPlane is a one-bit ink mask for a single panel color. A true cell
// means ink is deposited at that pixel.
type BitPlane struct {
	Width  int
	Height int
	Bits   []bool
}

// NewBitPlane creates an all-false plane of the given geometry.
func NewBitPlane(width, height int) *BitPlane {
	return &BitPlane{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// At returns the ink value at (x, y).
func (p *BitPlane) At(x, y int) bool {
	return p.Bits[y*p.Width+x]
}

// Set sets the ink value at (x, y).
func (p *BitPlane) Set(x, y int, v bool) {
	p.Bits[y*p.Width+x] = v
}

// Count returns the number of inked cells.
func (p *BitPlane) Count() int {
	n := 0
	for _, b := range p.Bits {
		if b {
			n++
		}
	}
	return n
}

// Split separates the black and red ink of a classified grid into two
// independent planes. A pixel marks at most one plane; white pixels mark
// neither.
func Split(c *ClassifiedImage) (black, red *BitPlane) {
	black = NewBitPlane(c.Width, c.Height)
	red = NewBitPlane(c.Width, c.Height)
	for i, l := range c.Labels {
		switch l {
		case Black:
			black.Bits[i] = true
		case Red:
			red.Bits[i] = true
		}
	}
	return black, red
}
