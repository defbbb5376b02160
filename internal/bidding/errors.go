package bidding

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Expected client-facing rejections. These are results, not failures: the
// engine returns them without logging them as errors.
var (
	// ErrNotFound: the auction does not exist.
	ErrNotFound = errors.New("auction not found")
	// ErrAuctionNotActive: the auction status is not active.
	ErrAuctionNotActive = errors.New("auction is not active")
	// ErrAuctionExpired: the end time has passed; the caller closed the
	// auction as a side effect of the attempt.
	ErrAuctionExpired = errors.New("auction has ended")
	// ErrSelfBidding: sellers cannot bid on their own auctions.
	ErrSelfBidding = errors.New("cannot bid on your own auction")
	// ErrBusy: the per-auction critical section could not be acquired within
	// the bounded wait. Retryable.
	ErrBusy = errors.New("auction is busy, please retry")
)

// ValidationError reports malformed input (missing auction id, non-positive
// amount) before any store access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// BidTooLowError rejects a bid that does not strictly exceed the price it was
// validated against. Threshold is the exact amount the next bid must exceed.
type BidTooLowError struct {
	Threshold decimal.Decimal
	// Against names the violated bound: "current price" or "highest bid".
	Against string
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid must be higher than %s of $%s", e.Against, e.Threshold.StringFixed(2))
}
