package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/magicmirror/epaper-renderer/internal/config"
	"github.com/magicmirror/epaper-renderer/internal/epd"
	"github.com/magicmirror/epaper-renderer/internal/faults"
	"github.com/magicmirror/epaper-renderer/internal/refresh"
	"github.com/magicmirror/epaper-renderer/internal/status"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logs")
	reset := flag.Bool("reset", false, "skip the refresh and clear the panel to blank")
	flag.Parse()

	// Initialize logger
	var logger *zap.Logger
	var err error
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := epd.NewDriver(logger)
	if err != nil {
		logger.Fatal("Failed to open display driver", zap.Error(err))
	}
	defer driver.Close()

	if *reset {
		if err := resetPanel(driver); err != nil {
			logger.Fatal("Failed to reset panel", zap.Error(err))
		}
		logger.Info("Panel cleared")
		return
	}

	// Status publishing is optional; a missing Redis only costs the
	// "last updated" event, never the refresh.
	var publisher refresh.Publisher
	if cfg.Redis.Addr != "" {
		p, err := status.NewPublisher(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Status publishing disabled", zap.Error(err))
		} else {
			publisher = p
			defer p.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := refresh.New(cfg, driver, publisher, logger)
	if err != nil {
		logger.Fatal("Invalid panel configuration", zap.Error(err))
	}
	if err := r.Refresh(ctx); err != nil {
		logger.Error("Refresh failed",
			zap.String("kind", string(faults.KindOf(err))),
			zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// resetPanel wakes the panel, blanks both planes and puts it back to
// sleep.
func resetPanel(driver epd.Driver) error {
	if err := driver.Init(); err != nil {
		return err
	}
	if err := driver.Clear(); err != nil {
		return err
	}
	return driver.Sleep()
}
