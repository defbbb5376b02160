package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/auctra/auctra/internal/models"
)

// Channel carrying every domain event. Fan-out is global: all connected
// clients see all auctions, so a single channel is enough.
const pubSubChannel = "auction_events"

// RedisBridge carries domain events across server instances over Redis
// Pub/Sub: the publishing half is a bus sink, the subscribing half feeds raw
// payloads into a local consumer (the websocket hub). An instance receives
// its own events back through the subscription, which keeps delivery uniform
// whether an event originated locally or on a peer.
type RedisBridge struct {
	log    *slog.Logger
	client *redis.Client
}

// NewRedisBridge connects and verifies the Redis connection.
func NewRedisBridge(log *slog.Logger, addr, password string, db int) (*RedisBridge, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBridge{
		log:    log.With("component", "redis-bridge"),
		client: rdb,
	}, nil
}

// Consume publishes the event to the shared channel. Part of the Sink
// interface; errors are logged and dropped.
func (b *RedisBridge) Consume(evt models.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		b.log.Warn("failed to marshal event", "type", evt.Type, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := b.client.Publish(ctx, pubSubChannel, data).Err(); err != nil {
			b.log.Warn("failed to publish event to Redis", "error", err)
		}
	}()
}

// Listen subscribes to the shared channel and forwards each raw payload to
// deliver until ctx is cancelled. Blocking; run in a goroutine.
func (b *RedisBridge) Listen(ctx context.Context, deliver func(payload []byte)) error {
	pubsub := b.client.Subscribe(ctx, pubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver([]byte(msg.Payload))
		}
	}
}

// Close closes the Redis connection.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
