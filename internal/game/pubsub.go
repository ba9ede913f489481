package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one published room event. A non-nil To restricts delivery to
// that player's subscriptions.
type Event struct {
	Seq     uint64
	Name    string
	Payload interface{}
	To      uuid.UUID
	At      time.Time
}

func (e Event) Private() bool {
	return e.To != uuid.Nil
}

// Subscription receives a room's events until it is closed or the room is
// torn down, at which point Events is closed.
type Subscription struct {
	PlayerID uuid.UUID
	events   chan Event
	broker   *Broker
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.broker.remove(s)
}

// Broker fans a room's events out to its subscribers. Delivery never blocks
// the publisher; a subscriber whose buffer is full misses the event and is
// expected to resync from a snapshot.
type Broker struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	seq    uint64
	buffer int
	closed bool
	clock  Clock

	onDrop func(sub *Subscription, e Event)
}

func NewBroker(buffer int, clock Clock) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		clock:  clock,
	}
}

// Subscribe registers a subscriber for playerID. Subscribing to a closed
// broker returns an already closed subscription.
func (b *Broker) Subscribe(playerID uuid.UUID) *Subscription {
	s := &Subscription{
		PlayerID: playerID,
		events:   make(chan Event, b.buffer),
		broker:   b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.events)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish stamps and delivers an event. to == uuid.Nil broadcasts.
func (b *Broker) Publish(name string, payload interface{}, to uuid.UUID) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	e := Event{
		Seq:     b.seq,
		Name:    name,
		Payload: payload,
		To:      to,
		At:      b.clock.Now(),
	}
	if b.closed {
		return e
	}

	for s := range b.subs {
		if e.Private() && s.PlayerID != e.To {
			continue
		}
		select {
		case s.events <- e:
		default:
			if b.onDrop != nil {
				b.onDrop(s, e)
			}
		}
	}
	return e
}

func (b *Broker) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription. Later publishes are counted but not delivered.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.events)
		delete(b.subs, s)
	}
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.events)
	}
}
