package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. The only transition
// that exists is active -> closed.
type AuctionStatus string

const (
	AuctionStatusActive AuctionStatus = "active"
	AuctionStatusClosed AuctionStatus = "closed"
)

// Auction represents a time-bounded sale of one item, owned by a seller.
// CurrentPrice is the highest accepted bid amount, or StartingPrice while no
// bid has been accepted; it never decreases.
type Auction struct {
	ID             uuid.UUID       `json:"id"`
	SellerID       uuid.UUID       `json:"seller_id"`
	SellerUsername string          `json:"seller_username,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	StartingPrice  decimal.Decimal `json:"starting_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	ImageURL       string          `json:"image_url,omitempty"`
	DurationDays   int             `json:"duration"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	Status         AuctionStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Read-time enrichment for listing responses.
	BidCount   int              `json:"bid_count,omitempty"`
	HighestBid *decimal.Decimal `json:"highest_bid,omitempty"`
}

// NewAuction builds an active auction starting now. The current price is
// initialized to the starting price and the end time is derived from the
// duration, expressed in days.
func NewAuction(sellerID uuid.UUID, sellerUsername, title, description, imageURL string, startingPrice decimal.Decimal, durationDays int) *Auction {
	now := time.Now().UTC()
	return &Auction{
		ID:             uuid.New(),
		SellerID:       sellerID,
		SellerUsername: sellerUsername,
		Title:          title,
		Description:    description,
		StartingPrice:  startingPrice,
		CurrentPrice:   startingPrice,
		ImageURL:       imageURL,
		DurationDays:   durationDays,
		StartTime:      now,
		EndTime:        now.Add(time.Duration(durationDays) * 24 * time.Hour),
		Status:         AuctionStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Expired reports whether the auction's end time has passed at the given
// instant. The status field may lag behind this until the next lifecycle
// sweep or bid attempt closes the auction.
func (a *Auction) Expired(now time.Time) bool {
	return !a.EndTime.After(now)
}

// AuctionRef is the minimal projection the lifecycle scheduler sweeps over.
type AuctionRef struct {
	ID      uuid.UUID
	EndTime time.Time
}
