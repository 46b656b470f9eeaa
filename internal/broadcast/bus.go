// Package broadcast is the one-way channel from the background coordinator to
// all connected foreground sessions.
package broadcast

import (
	"sync"
	"sync/atomic"
	"time"
)

// KindNotificationDisplayed is the only message kind on the wire today.
const KindNotificationDisplayed = "NOTIFICATION_DISPLAYED"

// Message is sent once per successful display, to every connected session.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Delivery is best-effort: no acknowledgment, no retry, no ordering
//     guarantee across sessions. Zero subscribers is a silent no-op.
//   - Slow subscribers may drop messages (bounded backpressure).
type Message struct {
	Kind           string    `json:"kind"`
	DestinationURL string    `json:"destinationUrl,omitempty"`
	SuppressDelay  int       `json:"suppressDelayMs"`
	At             time.Time `json:"at"`
}

type Bus interface {
	Publish(m Message)
	Subscribe(buffer int) (ch <-chan Message, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Message{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Message
	seq  atomic.Uint64
}

func (b *memBus) Publish(m Message) {
	if m.Kind == "" {
		m.Kind = KindNotificationDisplayed
	}
	if m.At.IsZero() {
		m.At = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	chs := make([]chan Message, 0, len(b.subs))
	for _, ch := range b.subs {
		chs = append(chs, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber unsubscribes concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- m:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Message, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(ch)
		})
	}
	return ch, unsub
}
