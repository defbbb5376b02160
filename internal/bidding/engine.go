// Package bidding implements the auction bidding engine: validation and
// application of bids, the per-auction critical section that keeps the
// current price consistent under concurrent bidding, and the defensive
// closure of expired auctions on the bid path.
package bidding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auctra/auctra/internal/events"
	"github.com/auctra/auctra/internal/metrics"
	"github.com/auctra/auctra/internal/models"
	"github.com/auctra/auctra/internal/store"
)

// DefaultLockWait bounds how long a bid request waits for the per-auction
// critical section before failing with ErrBusy.
const DefaultLockWait = 2 * time.Second

// Engine is the only component that creates bids or raises current_price.
type Engine struct {
	store    store.Store
	bus      events.Publisher
	log      *slog.Logger
	metrics  *metrics.Metrics
	locks    *keyedLock
	lockWait time.Duration
}

// NewEngine wires the engine. metrics may be nil (tests).
func NewEngine(log *slog.Logger, st store.Store, bus events.Publisher, m *metrics.Metrics, lockWait time.Duration) *Engine {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Engine{
		store:    st,
		bus:      bus,
		log:      log.With("component", "bidding"),
		metrics:  m,
		locks:    newKeyedLock(),
		lockWait: lockWait,
	}
}

// PlaceBid validates and applies a bid. The read-validate-write sequence runs
// inside the per-auction critical section so two concurrent bids can never
// both validate against the same price snapshot; events are emitted after the
// section is released.
//
// Returns the created bid, or one of the typed rejections of this package.
// Persistence failures are wrapped and surfaced without retry.
func (e *Engine) PlaceBid(ctx context.Context, auctionID uuid.UUID, bidderID uuid.UUID, bidderUsername string, amount decimal.Decimal) (*models.Bid, error) {
	if auctionID == uuid.Nil {
		return nil, &ValidationError{Reason: "auction id is required"}
	}
	if !amount.IsPositive() {
		return nil, &ValidationError{Reason: "bid amount must be positive"}
	}

	start := time.Now()
	bid, err := e.placeBidLocked(ctx, auctionID, bidderID, bidderUsername, amount)
	e.observe(start, err)
	return bid, err
}

func (e *Engine) placeBidLocked(ctx context.Context, auctionID, bidderID uuid.UUID, bidderUsername string, amount decimal.Decimal) (*models.Bid, error) {
	release, err := e.locks.Acquire(ctx, auctionID, e.lockWait)
	if err != nil {
		return nil, err
	}

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		release()
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read auction: %w", err)
	}

	highest, err := e.store.GetHighestBid(ctx, auctionID)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to read highest bid: %w", err)
	}

	if verr := Validate(auction, highest, bidderID, amount, time.Now().UTC()); verr != nil {
		if errors.Is(verr, ErrAuctionExpired) {
			// The lifecycle sweep has not caught this auction yet; close it
			// here so the rejection also settles the state.
			closed, cerr := e.store.CloseIfActive(ctx, auctionID)
			release()
			if cerr != nil {
				e.log.Warn("failed to close expired auction on bid path",
					"auction_id", auctionID, "error", cerr)
			} else if closed {
				e.emitClosed(auctionID)
			}
			return nil, verr
		}
		release()
		return nil, verr
	}

	// Conditional update first: if the scheduler closed the auction between
	// the read and here, no bid row is ever written.
	updated, err := e.store.UpdateCurrentPriceIfHigher(ctx, auctionID, amount)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to update current price: %w", err)
	}
	if !updated {
		release()
		return nil, ErrAuctionNotActive
	}

	bid := models.NewBid(auctionID, bidderID, bidderUsername, amount)
	if err := e.store.InsertBid(ctx, bid); err != nil {
		release()
		return nil, fmt.Errorf("failed to insert bid: %w", err)
	}

	release()

	var previousBidder *uuid.UUID
	if highest != nil {
		id := highest.BuyerID
		previousBidder = &id
	}
	e.bus.Publish(models.NewEvent(models.EventNewBid, auctionID, models.NewBidPayload{
		AuctionID:        auctionID,
		HighestBid:       amount,
		BuyerUsername:    bidderUsername,
		PreviousBidderID: previousBidder,
	}))

	e.log.Info("bid accepted",
		"auction_id", auctionID, "buyer_id", bidderID, "amount", amount.StringFixed(2))
	return bid, nil
}

func (e *Engine) emitClosed(auctionID uuid.UUID) {
	if e.metrics != nil {
		e.metrics.AuctionsClosed.Inc()
	}
	e.bus.Publish(models.NewEvent(models.EventAuctionClosed, auctionID, models.AuctionClosedPayload{
		AuctionID: auctionID,
	}))
	e.bus.Publish(models.NewEvent(models.EventTimerTick, auctionID, models.TimerTickPayload{
		AuctionID: auctionID,
		TimeLeft:  0,
		Status:    models.AuctionStatusClosed,
	}))
}

func (e *Engine) observe(start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.BidLatencyMS.Observe(float64(time.Since(start).Milliseconds()))

	outcome := metrics.OutcomeAccepted
	switch {
	case err == nil:
	case errors.Is(err, ErrBusy):
		outcome = metrics.OutcomeBusy
	case IsRejection(err):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	e.metrics.BidsTotal.WithLabelValues(outcome).Inc()
}

// IsRejection reports whether err is an expected client-facing rejection
// rather than a server failure.
func IsRejection(err error) bool {
	var vErr *ValidationError
	var lowErr *BidTooLowError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAuctionNotActive) ||
		errors.Is(err, ErrAuctionExpired) ||
		errors.Is(err, ErrSelfBidding) ||
		errors.As(err, &vErr) ||
		errors.As(err, &lowErr)
}

// ListAuctionBids returns an auction's bids ordered amount descending, ties
// by earliest creation first. Read-only, no serialization.
func (e *Engine) ListAuctionBids(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	if _, err := e.store.GetAuction(ctx, auctionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read auction: %w", err)
	}
	bids, err := e.store.ListBidsForAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

// ListBidderBids returns a buyer's bids, newest first, each enriched with its
// auction's state, current highest bid and bid count at read time. Bids whose
// auction has been deleted are skipped.
func (e *Engine) ListBidderBids(ctx context.Context, bidderID uuid.UUID) ([]models.BidderBid, error) {
	bids, err := e.store.ListBidsForBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}

	out := make([]models.BidderBid, 0, len(bids))
	for _, b := range bids {
		auction, err := e.store.GetAuction(ctx, b.AuctionID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read auction: %w", err)
		}

		highestAmount := b.Amount
		if highest, err := e.store.GetHighestBid(ctx, b.AuctionID); err != nil {
			return nil, fmt.Errorf("failed to read highest bid: %w", err)
		} else if highest != nil {
			highestAmount = highest.Amount
		}

		count, err := e.store.CountBids(ctx, b.AuctionID)
		if err != nil {
			return nil, fmt.Errorf("failed to count bids: %w", err)
		}

		out = append(out, models.BidderBid{
			Bid:                  *b,
			AuctionTitle:         auction.Title,
			AuctionStatus:        auction.Status,
			AuctionStartTime:     auction.StartTime,
			AuctionEndTime:       auction.EndTime,
			AuctionImage:         auction.ImageURL,
			AuctionCurrentPrice:  auction.CurrentPrice,
			AuctionStartingPrice: auction.StartingPrice,
			AuctionDuration:      auction.DurationDays,
			HighestBid:           highestAmount,
			BidCount:             count,
		})
	}
	return out, nil
}
