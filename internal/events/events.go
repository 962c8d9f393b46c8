// Package events carries domain events from the core services to the
// presentation layer. Mutations affecting memberships or profiles publish
// here instead of relying on ambient "current profile" state; subscribers
// (SSE clients, caches) refresh on receipt.
package events

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	MemberJoined        Kind = "member.joined"
	MemberRemoved       Kind = "member.removed"
	OrganizationUpdated Kind = "organization.updated"
	ProfileUpdated      Kind = "profile.updated"
)

// Event describes one domain mutation.
type Event struct {
	Kind           Kind      `json:"kind"`
	OrganizationID string    `json:"organization_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Bus fan-outs events to all active subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. Publishing never blocks the
// mutating request that triggered it.
func (b *Bus) Publish(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
