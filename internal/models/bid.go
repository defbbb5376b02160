package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an immutable offer by a buyer on an active auction. Bids are only
// created by the bidding engine after validation; they are never updated or
// deleted.
type Bid struct {
	ID            uuid.UUID       `json:"id"`
	AuctionID     uuid.UUID       `json:"auction_id"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	BuyerUsername string          `json:"buyer_username,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewBid creates an accepted bid record with a fresh id and timestamp.
func NewBid(auctionID, buyerID uuid.UUID, buyerUsername string, amount decimal.Decimal) *Bid {
	return &Bid{
		ID:            uuid.New(),
		AuctionID:     auctionID,
		BuyerID:       buyerID,
		BuyerUsername: buyerUsername,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
}

// BidderBid is a buyer's bid enriched with the state of its auction at read
// time: the auction summary, the auction's current highest bid and the total
// number of bids.
type BidderBid struct {
	Bid
	AuctionTitle         string          `json:"auction_title"`
	AuctionStatus        AuctionStatus   `json:"auction_status"`
	AuctionStartTime     time.Time       `json:"auction_start_time"`
	AuctionEndTime       time.Time       `json:"auction_end_time"`
	AuctionImage         string          `json:"auction_image,omitempty"`
	AuctionCurrentPrice  decimal.Decimal `json:"auction_current_price"`
	AuctionStartingPrice decimal.Decimal `json:"auction_starting_price"`
	AuctionDuration      int             `json:"auction_duration"`
	HighestBid           decimal.Decimal `json:"highest_bid"`
	BidCount             int             `json:"bid_count"`
}
