package bidding

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auctra/auctra/internal/models"
)

// Validate decides whether a proposed bid is acceptable against a snapshot of
// the auction and its current highest bid. Pure: no clock reads, no store
// access, no side effects. Rules run in order and the first failure wins.
//
// Returns nil to accept, or one of the typed rejections. An ErrAuctionExpired
// result obliges the caller to close the auction as a side effect, because a
// bid can arrive after expiry but before the next lifecycle sweep.
func Validate(auction *models.Auction, highest *models.Bid, bidderID uuid.UUID, amount decimal.Decimal, now time.Time) error {
	if auction == nil {
		return ErrNotFound
	}
	if auction.Status != models.AuctionStatusActive {
		return ErrAuctionNotActive
	}
	if auction.Expired(now) {
		return ErrAuctionExpired
	}
	if bidderID == auction.SellerID {
		return ErrSelfBidding
	}
	if !amount.GreaterThan(auction.CurrentPrice) {
		return &BidTooLowError{Threshold: auction.CurrentPrice, Against: "current price"}
	}
	if highest != nil && !amount.GreaterThan(highest.Amount) {
		return &BidTooLowError{Threshold: highest.Amount, Against: "highest bid"}
	}
	return nil
}
