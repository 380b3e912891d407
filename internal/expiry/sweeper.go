package expiry

import (
	"context"
	"sync/atomic"
	"time"

	"storefront/internal/models"
	"storefront/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderSource lists orders still pendingPayment past the hold window.
type OrderSource interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*models.Order, error)
}

// Canceller unwinds a single stale order in its own transaction.
type Canceller interface {
	CancelExpired(ctx context.Context, id uuid.UUID) (bool, error)
}

// Sweeper periodically cancels unpaid orders older than the hold window,
// releasing their reserved stock. One order failing never aborts the
// rest of the sweep.
type Sweeper struct {
	orders    OrderSource
	canceller Canceller
	interval  time.Duration
	holdFor   time.Duration
	batchSize int
	metrics   *metrics.AppMetrics
	log       *zap.Logger
	now       func() time.Time

	running atomic.Bool
	stopCh  chan struct{}
}

func NewSweeper(orders OrderSource, canceller Canceller, interval, holdFor time.Duration, m *metrics.AppMetrics, log *zap.Logger) *Sweeper {
	return &Sweeper{
		orders:    orders,
		canceller: canceller,
		interval:  interval,
		holdFor:   holdFor,
		batchSize: 100,
		metrics:   m,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop or context cancellation. A sweep
// still in flight suppresses the next tick instead of overlapping it.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("starting order expiry sweeper",
		zap.Duration("interval", s.interval), zap.Duration("hold_window", s.holdFor))

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweepGuarded(ctx)

		for {
			select {
			case <-ticker.C:
				s.sweepGuarded(ctx)
			case <-s.stopCh:
				s.log.Info("order expiry sweeper stopped")
				return
			case <-ctx.Done():
				s.log.Info("order expiry sweeper cancelled")
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) sweepGuarded(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous sweep still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	s.SweepOnce(ctx)
}

// SweepOnce cancels every stale pendingPayment order it finds, each in
// its own transaction, and reports how many were cancelled and failed.
func (s *Sweeper) SweepOnce(ctx context.Context) (cancelled, failed int) {
	cutoff := s.now().Add(-s.holdFor)

	stale, err := s.orders.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		s.log.Error("failed to list stale pending orders", zap.Error(err))
		return 0, 0
	}
	if len(stale) == 0 {
		return 0, 0
	}

	for _, ord := range stale {
		ok, err := s.canceller.CancelExpired(ctx, ord.ID)
		if err != nil {
			// Isolation: log and keep sweeping, one stuck order must not
			// block the rest of the fleet's stock from being reclaimed.
			failed++
			s.log.Error("failed to cancel stale order",
				zap.String("order_id", ord.ID.String()), zap.Error(err))
			continue
		}
		if ok {
			cancelled++
		}
	}

	s.metrics.AddExpiredOrdersCancelled(ctx, int64(cancelled))
	s.log.Info("expiry sweep finished",
		zap.Int("stale", len(stale)), zap.Int("cancelled", cancelled), zap.Int("failed", failed))
	return cancelled, failed
}
