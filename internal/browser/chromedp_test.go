package browser

import (
	"context"
	"testing"
)

func TestChromeBackendCloseUnlaunched(t *testing.T) {
	b := NewChromeBackend()
	if err := b.Close(context.Background()); err != nil {
		t.Errorf("Close on an unlaunched backend: got %v, want nil", err)
	}
	// Kill on an unlaunched backend must also be a no-op.
	b.Kill()
}

func TestChromeBackendCloseTimeoutThenKill(t *testing.T) {
	// An exhausted close budget makes Close return while its shutdown
	// goroutine may still be running; the immediate Kill that follows
	// must be safe against it and leave the backend released. Iterate to
	// give the goroutine and Kill a chance to overlap.
	for i := 0; i < 20; i++ {
		browserCtx, browserCancel := context.WithCancel(context.Background())
		b := &ChromeBackend{
			browserCtx:    browserCtx,
			browserCancel: browserCancel,
			allocCancel:   func() {},
		}

		closeCtx, cancel := context.WithCancel(context.Background())
		cancel() // graceful budget already exhausted

		_ = b.Close(closeCtx)
		b.Kill()

		if b.browserCtx != nil || b.browserCancel != nil || b.allocCancel != nil {
			t.Fatal("backend fields not cleared after kill")
		}
		// A second Kill after release must not panic.
		b.Kill()
	}
}
