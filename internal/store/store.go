// Package store defines the durable contracts for auctions and bids and
// provides the Postgres implementation plus an in-memory one for tests and
// local development.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auctra/auctra/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// AuctionFilter narrows auction listings.
type AuctionFilter struct {
	Status string // "", "active" or "closed"
	Search string // case-insensitive match on title/description
	Limit  int
	Offset int
}

// AuctionStore is the durable record of auctions. All current-price mutation
// goes through the bidding engine and all status mutation through the
// lifecycle scheduler or the engine's expiry path; both use the conditional
// updates below so a lost race degrades to a no-op instead of a lost write.
type AuctionStore interface {
	CreateAuction(ctx context.Context, a *models.Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	ListAuctions(ctx context.Context, f AuctionFilter) ([]*models.Auction, error)
	ListSellerAuctions(ctx context.Context, sellerID uuid.UUID) ([]*models.Auction, error)
	// ListActiveAuctions returns the id/end-time projection the scheduler
	// sweeps over.
	ListActiveAuctions(ctx context.Context) ([]models.AuctionRef, error)
	// UpdateCurrentPriceIfHigher raises the current price to newPrice only if
	// the auction is active and newPrice is strictly higher. Reports whether
	// a row changed.
	UpdateCurrentPriceIfHigher(ctx context.Context, id uuid.UUID, newPrice decimal.Decimal) (bool, error)
	// CloseIfActive transitions active -> closed. Reports whether the
	// transition happened; closing an already-closed auction is a no-op.
	CloseIfActive(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteAuction(ctx context.Context, id uuid.UUID) error
}

// BidStore is the append-only record of bids.
type BidStore interface {
	InsertBid(ctx context.Context, b *models.Bid) error
	// GetHighestBid returns the bid with the maximum amount, ties broken by
	// earliest creation time, or nil when the auction has no bids.
	GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
	// ListBidsForAuction orders by amount descending, ties by earliest
	// creation time first.
	ListBidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error)
	// ListBidsForBidder orders by creation time descending.
	ListBidsForBidder(ctx context.Context, bidderID uuid.UUID) ([]*models.Bid, error)
	CountBids(ctx context.Context, auctionID uuid.UUID) (int, error)
}

// Store is the combined persistence surface the engine and handlers consume.
type Store interface {
	AuctionStore
	BidStore
}
