package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromeBackend drives a headless chromium over the DevTools protocol,
// the same wire protocol the rest of the ecosystem's screenshot tooling
// speaks. One ChromeBackend owns at most one browser process.
type ChromeBackend struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromeBackend creates an unlaunched backend.
func NewChromeBackend() *ChromeBackend {
	return &ChromeBackend{}
}

// Launch spawns the browser process with a minimal hardened profile: no
// sandbox (the process runs on a constrained single-purpose host), no
// GPU, a single process, and a capped script heap.
func (b *ChromeBackend) Launch(ctx context.Context, opts LaunchOptions) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("single-process", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("js-flags", fmt.Sprintf("--max-old-space-size=%d", opts.MaxHeapMB)),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel

	// Run an empty task so the process spawns here and launch failures
	// surface in this step, not during navigation.
	if err := b.run(ctx); err != nil {
		b.Kill()
		return fmt.Errorf("browser launch failed: %w", err)
	}
	return nil
}

// Navigate loads url. WaitReady on the document body returns once the DOM
// is constructed, without waiting for the network to go idle.
func (b *ChromeBackend) Navigate(ctx context.Context, url string) error {
	return b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Screenshot rasters the current viewport into a PNG.
func (b *ChromeBackend) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := b.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close asks the browser to shut down gracefully and waits for the
// process to exit, bounded by ctx. The shutdown goroutine only ever
// touches its captured context: when ctx expires first, Kill runs
// immediately after this returns and writes the backend's fields, so
// every field access must stay on the session's goroutine.
func (b *ChromeBackend) Close(ctx context.Context) error {
	browserCtx := b.browserCtx
	if browserCtx == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Cancel(browserCtx)
	}()
	select {
	case err := <-done:
		b.release()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kill terminates the browser process without waiting.
func (b *ChromeBackend) Kill() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	b.release()
}

func (b *ChromeBackend) release() {
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.allocCancel = nil
	b.browserCtx = nil
	b.browserCancel = nil
}

// run executes actions against the browser context while honoring the
// step context's deadline and cancellation. chromedp actions must run on
// a context descending from the browser context, so the step context is
// bridged in via AfterFunc.
func (b *ChromeBackend) run(ctx context.Context, actions ...chromedp.Action) error {
	if b.browserCtx == nil {
		return fmt.Errorf("browser not launched")
	}
	runCtx, cancel := context.WithCancel(b.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
