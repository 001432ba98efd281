// Package worker hosts the background retention sweeper. It is owned by the
// process lifecycle: started from main with a context and stopped on
// shutdown, never an ambient timer.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/audit"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

// SweepLocker guards against concurrent sweeps across instances. A nil locker
// falls back to the in-process gate only.
type SweepLocker interface {
	AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseSweepLock(ctx context.Context) error
}

// RetentionSweeper periodically deletes tickets that have been Resolved for
// longer than the retention window, recording each deletion as a
// system-initiated AUTO_DELETE audit entry.
type RetentionSweeper struct {
	tickets  repository.TicketRepository
	recorder *audit.Recorder
	locker   SweepLocker
	logger   *zap.Logger
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	running  atomic.Bool
}

// NewRetentionSweeper constructs a sweeper. The clock defaults to time.Now
// and is injectable so tests can drive sweeps deterministically.
func NewRetentionSweeper(tickets repository.TicketRepository, recorder *audit.Recorder, locker SweepLocker, logger *zap.Logger, window, interval time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		tickets:  tickets,
		recorder: recorder,
		locker:   locker,
		logger:   logger,
		window:   window,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock overrides the sweeper's clock.
func (s *RetentionSweeper) WithClock(now func() time.Time) *RetentionSweeper {
	s.now = now
	return s
}

// Start runs the sweep loop until ctx is cancelled. It never blocks request
// handling; each tick runs one sweep in this goroutine.
func (s *RetentionSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("retention sweeper started",
			zap.Duration("interval", s.interval),
			zap.Duration("window", s.window))

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("retention sweeper stopped")
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error("retention sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Sweep performs one pass over the batch eligible at sweep start and returns
// the number of tickets removed. Tickets becoming eligible mid-sweep wait for
// the next cycle. A failure on one ticket never stops the rest of the batch.
func (s *RetentionSweeper) Sweep(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("retention sweep already running; skipping")
		return 0, nil
	}
	defer s.running.Store(false)

	if s.locker != nil {
		acquired, err := s.locker.AcquireSweepLock(ctx, s.interval)
		if err != nil {
			// Redis being down degrades to the in-process gate.
			s.logger.Warn("sweep lock unavailable; proceeding locally", zap.Error(err))
		} else if !acquired {
			s.logger.Info("sweep lock held elsewhere; skipping")
			return 0, nil
		} else {
			defer func() {
				if err := s.locker.ReleaseSweepLock(ctx); err != nil {
					s.logger.Warn("failed to release sweep lock", zap.Error(err))
				}
			}()
		}
	}

	cutoff := s.now().Add(-s.window)
	candidates, err := s.tickets.ListResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	s.logger.Info("retention sweep found candidates", zap.Int("count", len(candidates)))

	removed := 0
	for i := range candidates {
		ticket := candidates[i]
		s.recorder.TicketAutoDeleted(ctx, &ticket, s.windowDays())
		if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
			s.logger.Error("retention delete failed",
				zap.Int64("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}
		removed++
	}

	s.logger.Info("retention sweep complete", zap.Int("removed", removed))
	return removed, nil
}

func (s *RetentionSweeper) windowDays() int {
	return int(s.window / (24 * time.Hour))
}
