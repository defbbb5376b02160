package httpapi

import (
	"github.com/shopspring/decimal"
)

// placeBidRequest is the body of POST /api/bids.
type placeBidRequest struct {
	AuctionID string          `json:"auctionId" validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
}

// createAuctionRequest is the body of POST /api/auctions.
type createAuctionRequest struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
	Duration      int             `json:"duration" validate:"required,gt=0"`
	ImageURL      string          `json:"imageUrl" validate:"omitempty,url"`
}
