// Package notify is the in-process publish/subscribe channel that
// decouples cart and order services from their observers (the websocket
// hub, tests). Events carry typed payloads and are scoped to one
// application instance.
package notify

import (
	"sync"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	// EventCartUpdated fires after every cart mutation with fresh totals.
	EventCartUpdated EventType = "cart_updated"

	// EventOrderNotice fires when a tracked order changes status.
	EventOrderNotice EventType = "order_notice"
)

// CartUpdate is the payload of EventCartUpdated.
type CartUpdate struct {
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderNotice is the payload of EventOrderNotice. Message is the
// localized, user-dismissible notice text.
type OrderNotice struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Event is one published notification, addressed by session.
type Event struct {
	Type      EventType    `json:"type"`
	SessionID string       `json:"session_id"`
	Cart      *CartUpdate  `json:"cart,omitempty"`
	Order     *OrderNotice `json:"order,omitempty"`
}

const subscriberBuffer = 16

type subscriber struct {
	sessionID string // empty subscribes to every session
	ch        chan Event
}

// Bus fans events out to subscribers. Publishing never blocks: a
// subscriber that falls behind loses events rather than stalling the
// service that published.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]*subscriber
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers for events of one session (or all sessions when
// sessionID is empty) and returns the channel plus a cancel func. The
// channel is closed on cancel.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	sub := &subscriber{sessionID: sessionID, ch: make(chan Event, subscriberBuffer)}
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.sessionID != "" && sub.sessionID != e.SessionID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Slow subscriber; drop rather than block.
		}
	}
}
