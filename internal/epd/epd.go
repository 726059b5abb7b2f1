// Package epd drives a Waveshare 13.3 inch (B) black/red e-paper panel
// over SPI. The refresh pipeline hands it two packed bit-plane buffers;
// everything above this package works in pixels, everything below in
// panel registers.
package epd

import (
	"fmt"

	"github.com/magicmirror/epaper-renderer/internal/imaging"
)

// Native geometry of the 13.3" (B) module.
const (
	Width  = 960
	Height = 680
)

// Driver is the hardware surface the refresh pipeline talks to. The calls
// run in the fixed order Init, Display, Sleep; Clear replaces Display for
// a panel reset.
type Driver interface {
	// Size reports the panel's native landscape geometry in pixels.
	// Callers validate their buffer geometry against it before any
	// hardware call.
	Size() (width, height int)
	// Init powers the panel on and loads its register configuration.
	Init() error
	// Display pushes both packed planes and triggers a full refresh.
	Display(black, red []byte) error
	// Clear blanks the panel to white.
	Clear() error
	// Sleep puts the panel into deep sleep. The panel keeps its image
	// without power.
	Sleep() error
	// Close releases the SPI bus and GPIO pins.
	Close() error
}

// Buffer packs a bit plane into the panel's transfer format: eight pixels
// per byte, most significant bit first, a cleared bit meaning ink. Rows
// are padded to whole bytes.
func Buffer(p *imaging.BitPlane) []byte {
	stride := (p.Width + 7) / 8
	buf := make([]byte, stride*p.Height)
	for i := range buf {
		buf[i] = 0xFF
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if p.At(x, y) {
				buf[y*stride+x/8] &^= 0x80 >> uint(x%8)
			}
		}
	}
	return buf
}

// BlankBuffer returns a no-ink buffer for the given geometry.
func BlankBuffer(width, height int) []byte {
	stride := (width + 7) / 8
	buf := make([]byte, stride*height)
	for i := range buf {
		buf[i] = 0xFF
	}
	return buf
}

func checkBufferSize(name string, buf []byte, width, height int) error {
	want := ((width + 7) / 8) * height
	if len(buf) != want {
		return fmt.Errorf("%s buffer is %d bytes, want %d for %dx%d", name, len(buf), want, width, height)
	}
	return nil
}
