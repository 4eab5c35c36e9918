package identity

import (
	"sync"
	"time"

	"github.com/flexystyles/storefront-backend/pkg/logger"
)

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

// Event reports that the identity attached to a visitor changed.
// UserID is nil after sign-out.
type Event struct {
	Kind      EventKind
	VisitorID string
	UserID    *uint
	At        time.Time
}

// Bus fans identity events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event, and the cart session
// catches up on its next request through the token check.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that ends the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			logger.Warn("Identity event dropped, subscriber buffer full", map[string]interface{}{
				"visitor_id": e.VisitorID,
				"kind":       e.Kind,
			})
		}
	}
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

func SignIn(visitorID string, userID uint) Event {
	return Event{Kind: SignedIn, VisitorID: visitorID, UserID: &userID}
}

func SignOut(visitorID string) Event {
	return Event{Kind: SignedOut, VisitorID: visitorID}
}
