package service

import (
	"sync"

	"consigna/backend/internal/domain"
)

const subscriberBuffer = 16

// Broadcaster fans ledger events out to subscribers. A subscriber whose
// buffer is full misses the event.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan domain.LedgerEvent
	nextID int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan domain.LedgerEvent)}
}

// Subscribe returns a channel of events and a func that closes it.
func (b *Broadcaster) Subscribe() (<-chan domain.LedgerEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.LedgerEvent, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(event domain.LedgerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (s *Service) Subscribe() (<-chan domain.LedgerEvent, func()) {
	return s.events.Subscribe()
}
