package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Cleaner is the part of Storage the Sweeper drives.
type Cleaner interface {
	NeedsCleaning() (bool, error)
	Clean(ctx context.Context) error
}

// Sweeper periodically runs Clean while cleanup records are pending.
type Sweeper struct {
	cleaner  Cleaner
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper that checks every interval.
func NewSweeper(c Cleaner, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{cleaner: c, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is done. It returns nil on
// cancellation; only a misconfigured store without cleanup support is an
// error.
func (s *Sweeper) Run(ctx context.Context) error {
	if _, err := s.cleaner.NeedsCleaning(); errors.Is(err, ErrUnsupported) {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single Clean if any record is pending. Another sweep
// holding the lock is not a failure: that sweep covers the same records.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	pending, err := s.cleaner.NeedsCleaning()
	if err != nil {
		s.logger.Error("checking cleanup records", "error", err)
		return
	}
	if !pending {
		return
	}
	err = s.cleaner.Clean(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrLockContention):
		s.logger.Debug("cleanup sweep skipped", "reason", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Info("cleanup sweep interrupted", "error", err)
	default:
		s.logger.Error("cleanup sweep failed", "error", err)
	}
}
