package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/auctra/auctra/internal/models"
)

const (
	// Live notification subjects, one per auction: auction.events.{id}.
	liveSubjectPrefix = "auction.events."
	// Durable archival subjects consumed by external archival workers.
	archiveSubjectPrefix = "auction.archive."

	archiveStream = "AUCTION_EVENTS"
)

// NATSSink publishes every domain event to a per-auction live subject and,
// through JetStream, to a durable archival stream. Publishing is
// fire-and-forget from the producer's point of view.
type NATSSink struct {
	log  *slog.Logger
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewNATSSink connects the sink and ensures the archival stream exists.
func NewNATSSink(log *slog.Logger, conn *nats.Conn) (*NATSSink, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        archiveStream,
		Description: "Durable feed of auction domain events for archival consumers",
		Subjects:    []string{archiveSubjectPrefix + "*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	return &NATSSink{
		log:  log.With("component", "nats-sink"),
		conn: conn,
		js:   js,
	}, nil
}

// Consume marshals the event once and publishes it asynchronously on both
// paths. Errors are logged, never surfaced to the producer.
func (s *NATSSink) Consume(evt models.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		s.log.Warn("failed to marshal event", "type", evt.Type, "error", err)
		return
	}

	go func() {
		subject := liveSubjectPrefix + evt.AuctionID.String()
		if err := s.conn.Publish(subject, data); err != nil {
			s.log.Warn("failed to publish live event", "subject", subject, "error", err)
		}
	}()

	// Timer ticks are countdown chatter, not history; only state changes go
	// to the archival stream.
	if evt.Type == models.EventTimerTick {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		subject := archiveSubjectPrefix + evt.AuctionID.String()
		ack, err := s.js.Publish(ctx, subject, data)
		if err != nil {
			s.log.Warn("failed to publish to JetStream", "subject", subject, "error", err)
			return
		}
		s.log.Debug("archived event", "subject", subject, "seq", ack.Sequence)
	}()
}
