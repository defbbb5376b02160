package bidding

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/auctra/auctra/internal/models"
)

func activeAuction(sellerID uuid.UUID, currentPrice int64) *models.Auction {
	a := models.NewAuction(sellerID, "seller", "Painting", "", "", decimal.NewFromInt(100), 3)
	a.CurrentPrice = decimal.NewFromInt(currentPrice)
	return a
}

func TestValidate_Accepts(t *testing.T) {
	seller := uuid.New()
	a := activeAuction(seller, 100)

	err := Validate(a, nil, uuid.New(), decimal.NewFromInt(150), time.Now().UTC())
	require.NoError(t, err)
}

func TestValidate_RuleOrder(t *testing.T) {
	seller := uuid.New()
	bidder := uuid.New()
	now := time.Now().UTC()

	closed := activeAuction(seller, 100)
	closed.Status = models.AuctionStatusClosed

	expired := activeAuction(seller, 100)
	expired.EndTime = now.Add(-time.Minute)

	tests := []struct {
		name    string
		auction *models.Auction
		highest *models.Bid
		bidder  uuid.UUID
		amount  int64
		want    error
	}{
		{"missing auction", nil, nil, bidder, 9999, ErrNotFound},
		{"closed auction", closed, nil, bidder, 9999, ErrAuctionNotActive},
		{"expired auction", expired, nil, bidder, 9999, ErrAuctionExpired},
		// Expiry outranks the self-bid rule: even the seller gets the
		// expired rejection on a dead auction.
		{"seller on expired auction", expired, nil, seller, 9999, ErrAuctionExpired},
		{"seller on own auction", activeAuction(seller, 100), nil, seller, 200, ErrSelfBidding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.auction, tt.highest, tt.bidder, decimal.NewFromInt(tt.amount), now)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_BidTooLowAgainstCurrentPrice(t *testing.T) {
	a := activeAuction(uuid.New(), 100)

	err := Validate(a, nil, uuid.New(), decimal.NewFromInt(100), time.Now().UTC())

	var tooLow *BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.True(t, tooLow.Threshold.Equal(decimal.NewFromInt(100)))
	require.Contains(t, tooLow.Error(), "current price")
	require.Contains(t, tooLow.Error(), "$100.00")
}

func TestValidate_BidTooLowAgainstHighestBid(t *testing.T) {
	a := activeAuction(uuid.New(), 100)
	// Highest bid above current price models the window where the price
	// column lags the bid table; the stricter bound wins.
	highest := models.NewBid(a.ID, uuid.New(), "rival", decimal.NewFromInt(180))

	err := Validate(a, highest, uuid.New(), decimal.NewFromInt(150), time.Now().UTC())

	var tooLow *BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	require.True(t, tooLow.Threshold.Equal(decimal.NewFromInt(180)))
	require.Contains(t, tooLow.Error(), "highest bid")
	require.Contains(t, tooLow.Error(), "$180.00")
}

func TestValidate_EqualToHighestBidRejected(t *testing.T) {
	a := activeAuction(uuid.New(), 100)
	highest := models.NewBid(a.ID, uuid.New(), "rival", decimal.NewFromInt(150))

	err := Validate(a, highest, uuid.New(), decimal.NewFromInt(150), time.Now().UTC())

	var tooLow *BidTooLowError
	require.ErrorAs(t, err, &tooLow)
}

func TestValidate_StrictlyGreaterAcceptsCents(t *testing.T) {
	a := activeAuction(uuid.New(), 100)

	err := Validate(a, nil, uuid.New(), decimal.RequireFromString("100.01"), time.Now().UTC())
	require.NoError(t, err)
}

func TestValidate_IsPure(t *testing.T) {
	a := activeAuction(uuid.New(), 100)
	before := *a

	_ = Validate(a, nil, uuid.New(), decimal.NewFromInt(50), time.Now().UTC())
	require.Equal(t, before, *a, "validation must not mutate the snapshot")
}
