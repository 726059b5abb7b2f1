// Package refresh wires the availability probe, the browser session and
// the imaging pipeline into one deadline-bounded cycle that ends at the
// display driver. The panel is only ever touched after the whole pipeline
// has produced a coherent plane pair; a failed cycle leaves the previous
// image on screen.
package refresh

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/magicmirror/epaper-renderer/internal/browser"
	"github.com/magicmirror/epaper-renderer/internal/config"
	"github.com/magicmirror/epaper-renderer/internal/epd"
	"github.com/magicmirror/epaper-renderer/internal/faults"
	"github.com/magicmirror/epaper-renderer/internal/imaging"
	"github.com/magicmirror/epaper-renderer/internal/probe"
	"github.com/magicmirror/epaper-renderer/pkg/models"
)

// Publisher is satisfied by status.Publisher. A nil Publisher disables
// status events.
type Publisher interface {
	Publish(ctx context.Context, result *models.RefreshResult) error
}

// Refresher runs refresh cycles. Cycles are strictly sequential; the
// caller must not invoke Refresh concurrently.
type Refresher struct {
	cfg        *config.Config
	logger     *zap.Logger
	probe      browser.Availability
	newBackend func() browser.Backend
	driver     epd.Driver
	publisher  Publisher
}

// New creates a refresher using a headless chromium backend. The
// configured panel geometry must match the driver's native geometry, so a
// mismatch fails here instead of at display time with the panel already
// powered.
func New(cfg *config.Config, driver epd.Driver, publisher Publisher, logger *zap.Logger) (*Refresher, error) {
	if err := checkGeometry(cfg, driver); err != nil {
		return nil, err
	}
	return &Refresher{
		cfg:    cfg,
		logger: logger,
		probe:  probe.New(cfg.Target.ProbeTimeout.Std(), logger),
		newBackend: func() browser.Backend {
			return browser.NewChromeBackend()
		},
		driver:    driver,
		publisher: publisher,
	}, nil
}

// checkGeometry compares the configured geometry, after the portrait
// rotation that precedes the plane split, against the driver's native
// landscape geometry.
func checkGeometry(cfg *config.Config, driver epd.Driver) error {
	w, h := cfg.Panel.Width, cfg.Panel.Height
	if cfg.Panel.Portrait {
		w, h = h, w
	}
	dw, dh := driver.Size()
	if w != dw || h != dh {
		return fmt.Errorf("panel geometry %dx%d (after orientation) does not match driver's native %dx%d", w, h, dw, dh)
	}
	return nil
}

// Refresh runs one full capture, classify, display cycle under the
// overall deadline. The browser session's teardown runs on its own code
// path, so even a cycle abandoned at the deadline cannot leak the
// process.
func (r *Refresher) Refresh(ctx context.Context) error {
	start := time.Now()
	r.logger.Info("Starting refresh",
		zap.String("url", r.cfg.Target.URL),
		zap.Duration("deadline", r.cfg.Deadline.Std()))

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Deadline.Std())
	defer cancel()

	err := r.run(ctx)
	elapsed := time.Since(start)

	r.publish(err, elapsed)

	if err != nil {
		return err
	}
	r.logger.Info("Refresh finished", zap.Duration("elapsed", elapsed))
	return nil
}

func (r *Refresher) run(ctx context.Context) error {
	session := browser.NewSession(r.cfg, r.probe, r.newBackend(), r.logger)

	shot, err := session.Capture(ctx)
	if err != nil {
		return r.classify(ctx, err)
	}

	img, err := r.decodeArtifact(shot)
	if err != nil {
		return faults.Wrap(err, faults.CaptureError, "decoding screenshot")
	}

	black, red := r.planes(img)

	// The deadline may have expired during the pixel work; never start a
	// panel refresh after it.
	if cerr := ctx.Err(); cerr != nil {
		return r.classify(ctx, cerr)
	}

	r.logger.Debug("Handing planes to display driver",
		zap.Int("black_marks", black.Count()),
		zap.Int("red_marks", red.Count()))

	if err := r.driver.Init(); err != nil {
		return fmt.Errorf("waking panel: %w", err)
	}
	if err := r.driver.Display(epd.Buffer(black), epd.Buffer(red)); err != nil {
		return fmt.Errorf("pushing planes to panel: %w", err)
	}
	if err := r.driver.Sleep(); err != nil {
		// The image is already on screen; a failed sleep only costs power.
		r.logger.Warn("Panel sleep failed", zap.Error(err))
	}
	return nil
}

// planes runs the pixel pipeline: resize to panel geometry, optional
// luminance inversion, ternary classification, mounting orientation, and
// the split into ink planes.
func (r *Refresher) planes(img image.Image) (black, red *imaging.BitPlane) {
	img = imaging.ToPanel(img, r.cfg.Panel.Width, r.cfg.Panel.Height)
	if r.cfg.Panel.Invert {
		img = imaging.Invert(img)
	}
	classified := imaging.Classify(img).Orient(r.cfg.Panel.Portrait, r.cfg.Panel.TopDown)
	return imaging.Split(classified)
}

// classify maps an abandoned cycle to overall_timeout when the deadline
// was the reason, and passes other failures through unchanged.
func (r *Refresher) classify(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return faults.Wrapf(err, faults.OverallTimeout, "refresh deadline of %s exceeded", r.cfg.Deadline.Std())
	}
	return err
}

// decodeArtifact spools the raw capture through a scoped temporary file
// and decodes it. The file exists only for the duration of this call,
// on every exit path.
func (r *Refresher) decodeArtifact(shot []byte) (image.Image, error) {
	tmp, err := os.CreateTemp("", "epaper-capture-*.png")
	if err != nil {
		return nil, fmt.Errorf("creating screenshot artifact: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(shot); err != nil {
		return nil, fmt.Errorf("writing screenshot artifact: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img, err := png.Decode(tmp)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot artifact: %w", err)
	}

	r.logger.Debug("Screenshot artifact decoded",
		zap.String("path", tmp.Name()),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// publish reports the cycle outcome to the optional status channel. The
// cycle deadline may already be gone, so publishing runs on its own short
// budget, and a publish failure is only a warning.
func (r *Refresher) publish(cycleErr error, elapsed time.Duration) {
	if r.publisher == nil {
		return
	}

	result := &models.RefreshResult{
		Type:        "refresh_result",
		URL:         r.cfg.Target.URL,
		Panel:       models.Panel{Width: r.cfg.Panel.Width, Height: r.cfg.Panel.Height},
		Success:     cycleErr == nil,
		DurationMS:  elapsed.Milliseconds(),
		ProcessedAt: time.Now(),
	}
	if cycleErr != nil {
		result.FailureKind = string(faults.KindOf(cycleErr))
		result.Error = cycleErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.publisher.Publish(ctx, result); err != nil {
		r.logger.Warn("Failed to publish refresh status", zap.Error(err))
	}
}
