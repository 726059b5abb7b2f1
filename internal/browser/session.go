// Package browser owns one headless browser process for the duration of
// one refresh cycle and drives it through a fixed capture sequence. The
// sequence is a state machine: every state has its own timeout and
// failure classification, and teardown runs on every exit path so the
// process can never be leaked.
package browser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/magicmirror/epaper-renderer/internal/config"
	"github.com/magicmirror/epaper-renderer/internal/faults"
)

// settleGrace pads the settle step's budget past the wait duration it
// bounds, so finishing the wait never races the step deadline.
const settleGrace = time.Second

// State enumerates the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateLaunching
	StateNavigating
	StateSettling
	StateCapturing
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateLaunching:
		return "launching"
	case StateNavigating:
		return "navigating"
	case StateSettling:
		return "settling"
	case StateCapturing:
		return "capturing"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LaunchOptions configures the browser process for one cycle.
type LaunchOptions struct {
	ExecPath  string
	Width     int
	Height    int
	MaxHeapMB int
}

// Backend is the browser automation surface the session drives. It exists
// so the state machine can be exercised without a real browser.
type Backend interface {
	// Launch starts the browser process.
	Launch(ctx context.Context, opts LaunchOptions) error
	// Navigate loads the target URL, waiting for DOM construction only.
	Navigate(ctx context.Context, url string) error
	// Screenshot rasters the current viewport into an encoded image.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close requests a graceful browser shutdown.
	Close(ctx context.Context) error
	// Kill forcibly terminates the browser process.
	Kill()
}

// Availability is satisfied by probe.Probe.
type Availability interface {
	Available(ctx context.Context, url string) bool
}

// Session runs one capture cycle. A Session is single-use: it owns its
// browser process exclusively and is discarded after Capture returns.
type Session struct {
	cfg      *config.Config
	probe    Availability
	backend  Backend
	logger   *zap.Logger
	state    State
	launched bool
}

// NewSession creates a session for one cycle.
func NewSession(cfg *config.Config, probe Availability, backend Backend, logger *zap.Logger) *Session {
	return &Session{
		cfg:     cfg,
		probe:   probe,
		backend: backend,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// step is one edge of the state machine: the state it enters, its timeout
// budget, how its failure is classified, and whether that failure ends
// the cycle. The whole sequence is this table; there is no other control
// flow.
type step struct {
	state   State
	timeout time.Duration
	kind    faults.Kind
	fatal   bool
	run     func(ctx context.Context) error
}

// Capture runs the full check/launch/navigate/settle/capture sequence and
// returns the raw screenshot bytes. Whatever happens, the browser process
// is terminated before Capture returns.
func (s *Session) Capture(ctx context.Context) (shot []byte, err error) {
	defer func() {
		s.teardown()
		if err != nil {
			s.state = StateFailed
		} else {
			s.state = StateClosed
		}
	}()

	steps := []step{
		{
			state:   StateChecking,
			timeout: s.cfg.Target.ProbeTimeout.Std(),
			kind:    faults.ServerUnavailable,
			fatal:   true,
			run: func(ctx context.Context) error {
				if !s.probe.Available(ctx, s.cfg.Target.URL) {
					return faults.Newf(faults.ServerUnavailable, "no 200 response from %s", s.cfg.Target.URL)
				}
				return nil
			},
		},
		{
			state:   StateLaunching,
			timeout: s.cfg.Browser.LaunchTimeout.Std(),
			kind:    faults.LaunchError,
			fatal:   true,
			run: func(ctx context.Context) error {
				if err := s.backend.Launch(ctx, LaunchOptions{
					ExecPath:  s.cfg.Browser.ExecPath,
					Width:     s.cfg.Panel.Width,
					Height:    s.cfg.Panel.Height,
					MaxHeapMB: s.cfg.Browser.MaxHeapMB,
				}); err != nil {
					return err
				}
				s.launched = true
				return nil
			},
		},
		{
			state:   StateNavigating,
			timeout: s.cfg.Browser.NavigationTimeout.Std(),
			kind:    faults.NavigationTimeout,
			fatal:   true,
			run: func(ctx context.Context) error {
				return s.backend.Navigate(ctx, s.cfg.Target.URL)
			},
		},
		{
			// Settle failure is deliberately non-fatal: late-rendering
			// content is an acceptable degraded result, an unreachable
			// server is not.
			// The step budget carries headroom over the wait itself
			// so a timer firing on schedule cannot lose to its own
			// step deadline.
			state:   StateSettling,
			timeout: s.cfg.Browser.SettleWait.Std() + settleGrace,
			fatal:   false,
			run: func(ctx context.Context) error {
				select {
				case <-time.After(s.cfg.Browser.SettleWait.Std()):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
		{
			state:   StateCapturing,
			timeout: s.cfg.Browser.CaptureTimeout.Std(),
			kind:    faults.CaptureError,
			fatal:   true,
			run: func(ctx context.Context) error {
				b, err := s.backend.Screenshot(ctx)
				if err != nil {
					return err
				}
				shot = b
				return nil
			},
		},
	}

	for _, st := range steps {
		s.state = st.state
		s.logger.Debug("Session state entered", zap.Stringer("state", st.state))

		stepErr := runStep(ctx, st)
		if stepErr == nil {
			continue
		}

		if !st.fatal {
			s.logger.Warn("Settle wait interrupted, capturing anyway", zap.Error(stepErr))
			continue
		}

		if faults.KindOf(stepErr) == "" {
			stepErr = faults.Wrapf(stepErr, st.kind, "%s failed", st.state)
		}
		s.logger.Error("Session step failed",
			zap.Stringer("state", st.state),
			zap.Error(stepErr))
		return nil, stepErr
	}

	return shot, nil
}

// runStep bounds one step by its own timeout on top of the cycle context.
func runStep(parent context.Context, st step) error {
	ctx, cancel := context.WithTimeout(parent, st.timeout)
	defer cancel()
	return st.run(ctx)
}

// teardown implements the cascading close: graceful shutdown first, forced
// kill when the graceful path does not finish inside the close timeout.
// It runs on a context detached from the cycle so an expired overall
// deadline cannot skip it. Teardown problems degrade to a warning and
// never change the cycle's outcome.
func (s *Session) teardown() {
	if !s.launched {
		return
	}
	s.state = StateClosing
	s.logger.Debug("Session state entered", zap.Stringer("state", StateClosing))

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Browser.CloseTimeout.Std())
	defer cancel()

	if err := s.backend.Close(ctx); err != nil {
		s.logger.Warn("Graceful browser shutdown failed, killing process", zap.Error(err))
		s.backend.Kill()
	}
	s.launched = false
}
