package epd

import (
	"testing"

	"github.com/magicmirror/epaper-renderer/internal/imaging"
)

func TestBuffer(t *testing.T) {
	t.Run("empty plane packs to all ones", func(t *testing.T) {
		buf := Buffer(imaging.NewBitPlane(16, 2))
		if len(buf) != 4 {
			t.Fatalf("got %d bytes, want 4", len(buf))
		}
		for i, b := range buf {
			if b != 0xFF {
				t.Errorf("byte %d: got 0x%02x, want 0xFF", i, b)
			}
		}
	})

	t.Run("MSB-first packing, cleared bit is ink", func(t *testing.T) {
		p := imaging.NewBitPlane(16, 2)
		p.Set(0, 0, true)  // first bit of byte 0
		p.Set(15, 1, true) // last bit of byte 3

		buf := Buffer(p)

		if buf[0] != 0x7F {
			t.Errorf("byte 0: got 0x%02x, want 0x7F", buf[0])
		}
		if buf[1] != 0xFF || buf[2] != 0xFF {
			t.Errorf("middle bytes: got 0x%02x 0x%02x, want 0xFF 0xFF", buf[1], buf[2])
		}
		if buf[3] != 0xFE {
			t.Errorf("byte 3: got 0x%02x, want 0xFE", buf[3])
		}
	})

	t.Run("rows pad to whole bytes", func(t *testing.T) {
		p := imaging.NewBitPlane(10, 3)
		p.Set(9, 2, true)

		buf := Buffer(p)

		if len(buf) != 6 {
			t.Fatalf("got %d bytes, want 6 (stride 2, 3 rows)", len(buf))
		}
		// Pixel (9,2) is bit 1 of the last row's second byte.
		if buf[5] != 0xBF {
			t.Errorf("last byte: got 0x%02x, want 0xBF", buf[5])
		}
	})
}

func TestBlankBuffer(t *testing.T) {
	buf := BlankBuffer(10, 2)
	if len(buf) != 4 {
		t.Fatalf("got %d bytes, want 4", len(buf))
	}
	for i, b := range buf {
		if b != 0xFF {
			t.Errorf("byte %d: got 0x%02x, want 0xFF", i, b)
		}
	}
}

func TestCheckBufferSize(t *testing.T) {
	if err := checkBufferSize("black", make([]byte, 4), 16, 2); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := checkBufferSize("black", make([]byte, 3), 16, 2); err == nil {
		t.Error("expected error for short buffer")
	}
}
