package grabber

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sandexzx/PDF-Matrix-Grabber/decode"
	"github.com/sandexzx/PDF-Matrix-Grabber/logger"
	"github.com/sandexzx/PDF-Matrix-Grabber/raster"
)

// Session is the top-level driver (§4.8): it owns SessionStats end to end,
// wires the scheduler and sink from an already-validated Config, installs
// the operator-interrupt hook, and guarantees a final flush regardless of
// how the run ends.
type Session struct {
	cfg *Config
}

// NewSession validates cfg and returns a ready-to-run Session, or the
// ConfigError that validation produced.
func NewSession(cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}
	return &Session{cfg: cfg}, nil
}

// Run enumerates the input set, drives the scheduler to completion (or
// until interrupted), and returns the final SessionStats. It never returns
// a nil *SessionStats, even on error, so a caller can report partial
// progress.
func (s *Session) Run(ctx context.Context) (*SessionStats, error) {
	stats := &SessionStats{StartedAt: startTime()}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := NewSink(s.cfg.OutputPath, s.cfg.SaveEvery)
	if err != nil {
		return stats, fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("final sink close failed", "err", err)
		}
	}()

	rz := raster.NewPopplerRasterizer()
	dec := decode.NewDmtxReadDecoder()

	scheduler := NewScheduler(s.cfg, rz, dec, sink, stats)

	tasks, err := scheduler.Enumerate(ctx)
	if err != nil {
		stats.Elapsed = elapsedSince(stats.StartedAt)
		return stats, err
	}
	logger.Info("enumerated tasks", "files", stats.TotalFiles, "pages", stats.TotalPages,
		"tasks", len(tasks), "resumed_from", stats.ResumedFrom)

	runErr := scheduler.Run(ctx, tasks)
	stats.Elapsed = elapsedSince(stats.StartedAt)

	if flushErr := sink.Flush(); flushErr != nil {
		logger.Warn("flush after run failed", "err", flushErr)
	}

	if runErr != nil {
		return stats, runErr
	}
	if ctx.Err() != nil {
		stats.Interrupted = true
	}
	return stats, nil
}

// startTime and elapsedSince exist so the only two time.Now() call sites in
// the package are named and easy to stub from tests if ever needed; they
// are thin wrappers, not an abstraction over a clock interface, since
// nothing in this codebase needs to fake time yet.
func startTime() time.Time { return time.Now() }

func elapsedSince(t time.Time) time.Duration { return time.Since(t) }
