// Package events provides the domain-event fan-out: an in-process bus
// delivering each event to every registered sink, best effort. The bus is not
// a message broker; there is no durability, ordering across auctions, or
// replay. Sinks must not block — anything slow hands the event off to its own
// goroutine or channel.
package events

import (
	"log/slog"
	"sync"

	"github.com/auctra/auctra/internal/models"
)

// Publisher is the producer-side surface the bidding engine and the
// lifecycle scheduler emit through.
type Publisher interface {
	Publish(evt models.Event)
}

// Sink consumes domain events. Consume must return promptly.
type Sink interface {
	Consume(evt models.Event)
}

// Bus fans every published event out to all sinks. Safe for concurrent use.
type Bus struct {
	log *slog.Logger

	mu    sync.RWMutex
	sinks []Sink
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{log: log.With("component", "events")}
}

// Subscribe registers a sink. Sinks registered after a Publish has started do
// not receive that event.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish delivers evt to every sink, recovering from sink panics so one bad
// consumer cannot take down a producer.
func (b *Bus) Publish(evt models.Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()

	for _, s := range sinks {
		b.consume(s, evt)
	}
}

func (b *Bus) consume(s Sink, evt models.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event sink panicked", "type", evt.Type, "panic", r)
		}
	}()
	s.Consume(evt)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(evt models.Event)

func (f SinkFunc) Consume(evt models.Event) { f(evt) }
