package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a domain event variant.
type EventType string

const (
	EventAuctionCreated EventType = "auction_created"
	EventNewBid         EventType = "new_bid"
	EventTimerTick      EventType = "timer_tick"
	EventAuctionClosed  EventType = "auction_closed"
)

// Event is the envelope broadcast to subscribed clients and published to the
// notification/archival channels. Events are transient: produced once,
// fanned out best-effort, and discarded.
type Event struct {
	EventID   uuid.UUID `json:"event_id"`
	Type      EventType `json:"type"`
	AuctionID uuid.UUID `json:"auction_id"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an envelope with a fresh id and the current time.
func NewEvent(typ EventType, auctionID uuid.UUID, payload any) Event {
	return Event{
		EventID:   uuid.New(),
		Type:      typ,
		AuctionID: auctionID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewBidPayload notifies watchers that an auction has a new highest bid.
// PreviousBidderID lets clients tell the outbid buyer apart.
type NewBidPayload struct {
	AuctionID        uuid.UUID       `json:"auctionId"`
	HighestBid       decimal.Decimal `json:"highestBid"`
	BuyerUsername    string          `json:"buyerUsername"`
	PreviousBidderID *uuid.UUID      `json:"previousBidderId,omitempty"`
}

// TimerTickPayload carries the countdown for one auction. A terminal tick has
// TimeLeft zero and status closed.
type TimerTickPayload struct {
	AuctionID uuid.UUID     `json:"auctionId"`
	TimeLeft  int64         `json:"timeLeft"`
	Status    AuctionStatus `json:"status"`
}

// AuctionClosedPayload marks the one-way transition to closed.
type AuctionClosedPayload struct {
	AuctionID uuid.UUID `json:"auctionId"`
}
