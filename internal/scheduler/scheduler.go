// Package scheduler drives time-based auction closure: a fixed-cadence sweep
// over active auctions that closes the expired ones and broadcasts countdown
// ticks for the rest.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/auctra/auctra/internal/events"
	"github.com/auctra/auctra/internal/metrics"
	"github.com/auctra/auctra/internal/models"
	"github.com/auctra/auctra/internal/store"
)

// DefaultInterval matches the original one-second countdown granularity.
const DefaultInterval = time.Second

// Scheduler owns the active -> closed transition. It is the single recurring
// background task of the server; the bid path only closes auctions
// defensively when it races ahead of a sweep.
type Scheduler struct {
	store    store.AuctionStore
	bus      events.Publisher
	log      *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

// New wires the scheduler. metrics may be nil (tests).
func New(log *slog.Logger, st store.AuctionStore, bus events.Publisher, m *metrics.Metrics, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    st,
		bus:      bus,
		log:      log.With("component", "scheduler"),
		metrics:  m,
		interval: interval,
	}
}

// Run sweeps on the configured cadence until ctx is cancelled. Blocking; run
// in a goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("auction timer started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("auction timer stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx, time.Now().UTC())
		}
	}
}

// Sweep enumerates active auctions once. A failure on one auction is logged
// and skipped so it cannot stall the rest of the sweep; the auction is
// retried on the next tick.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) {
	refs, err := s.store.ListActiveAuctions(ctx)
	if err != nil {
		s.log.Error("failed to list active auctions", "error", err)
		return
	}

	for _, ref := range refs {
		timeLeft := ref.EndTime.Sub(now) / time.Second
		if timeLeft > 0 {
			s.bus.Publish(models.NewEvent(models.EventTimerTick, ref.ID, models.TimerTickPayload{
				AuctionID: ref.ID,
				TimeLeft:  int64(timeLeft),
				Status:    models.AuctionStatusActive,
			}))
			continue
		}

		closed, err := s.store.CloseIfActive(ctx, ref.ID)
		if err != nil {
			s.log.Warn("failed to close expired auction", "auction_id", ref.ID, "error", err)
			continue
		}
		if !closed {
			// Lost the race against the bid path's defensive close; that
			// path already emitted the closure events.
			continue
		}

		s.log.Info("auction ended", "auction_id", ref.ID)
		if s.metrics != nil {
			s.metrics.AuctionsClosed.Inc()
		}
		s.bus.Publish(models.NewEvent(models.EventAuctionClosed, ref.ID, models.AuctionClosedPayload{
			AuctionID: ref.ID,
		}))
		s.bus.Publish(models.NewEvent(models.EventTimerTick, ref.ID, models.TimerTickPayload{
			AuctionID: ref.ID,
			TimeLeft:  0,
			Status:    models.AuctionStatusClosed,
		}))
	}
}
