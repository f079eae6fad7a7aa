// Package events publishes domain notifications. Publishers are passed in
// explicitly; the commission core never imports this package.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Type string

const (
	SaleCreated     Type = "sale.created"
	SalePaid        Type = "sale.paid"
	SaleCancelled   Type = "sale.cancelled"
	SaleDeleted     Type = "sale.deleted"
	OverrideChanged Type = "override.changed"
	StaffChanged    Type = "staff.changed"
	ExpenseCreated  Type = "expense.created"
)

type Event struct {
	Type       Type           `json:"type"`
	CompanyID  string         `json:"company_id"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, companyID string) (<-chan Event, error)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

func CompanyChannel(companyID string) string {
	return fmt.Sprintf("barbershop:events:%s", companyID)
}

func TypeChannel(t Type) string {
	return fmt.Sprintf("barbershop:events:type:%s", t)
}

type RedisBus struct {
	redis *redis.Client
	now   func() time.Time
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{redis: rdb, now: time.Now}
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = b.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redis.Publish(ctx, CompanyChannel(event.CompanyID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := b.redis.Publish(ctx, TypeChannel(event.Type), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to type channel: %w", err)
	}
	return nil
}

// Subscribe streams the company's events until ctx is done. Malformed
// payloads are skipped.
func (b *RedisBus) Subscribe(ctx context.Context, companyID string) (<-chan Event, error) {
	sub := b.redis.Subscribe(ctx, CompanyChannel(companyID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := Decode([]byte(msg.Payload))
				if err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return e, nil
}

// Recorder keeps published events in memory. Used by tests of the services.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.Events = append(r.Events, event)
	return nil
}

func (r *Recorder) Types() []Type {
	out := make([]Type, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
