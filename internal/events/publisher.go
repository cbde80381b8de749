// Package events carries "ledger changed" notifications between components.
// Earlier iterations of the product let sibling UI components invalidate
// each other through ambient globally-registered refresh callbacks; this
// replaces that with an explicit typed publish/subscribe channel.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel ledger events are published on.
const Channel = "ledger.events"

// Kind identifies what changed.
type Kind string

const (
	KindRecordCreated    Kind = "record.created"
	KindPaymentAllocated Kind = "payment.allocated"
	KindStatusCorrected  Kind = "status.corrected"
)

// Event describes one ledger change. Month is YYYY-MM.
type Event struct {
	Kind       Kind      `json:"kind"`
	VendorID   string    `json:"vendor_id"`
	CustomerID string    `json:"customer_id,omitempty"`
	Month      string    `json:"month,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher is what services depend on; implementations decide transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// redisPublisher broadcasts events over Redis pub/sub.
type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a Publisher backed by Redis pub/sub.
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish ledger event: %w", err)
	}
	return nil
}

// Subscribe listens on the ledger event channel and delivers decoded events
// until ctx is cancelled. Undecodable payloads are logged and skipped.
func Subscribe(ctx context.Context, client *redis.Client) (<-chan Event, func()) {
	sub := client.Subscribe(ctx, Channel)
	out := make(chan Event)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Dropping undecodable ledger event: %v", err)
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return out, cancel
}

// NopPublisher discards events; used in tests and tools that do not care.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
