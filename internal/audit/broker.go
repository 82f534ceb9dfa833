package audit

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Broker fans audit events out to asynchronous subscribers (the alert
// monitor, persistence sinks). Publish never blocks: a subscriber whose
// buffer is full loses the event, which is counted and logged rather than
// stalling the security-decision path that published it.
type Broker struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	closed  bool
	dropped atomic.Int64
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber with the given buffer size and returns
// its channel. The channel is closed by Unsubscribe or Close.
func (b *Broker) Subscribe(buf int) chan Event {
	if buf <= 0 {
		buf = 100
	}
	ch := make(chan Event, buf)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish delivers an event to every subscriber that has buffer room.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop on slow subscriber, log and count.
			count := b.dropped.Add(1)
			if count == 1 || count%100 == 0 {
				slog.Warn("audit broker dropped event",
					"session_id", ev.SessionID, "type", ev.Type, "total_dropped", count)
			}
		}
	}
}

// Close closes all subscriber channels. Consumers draining their channel see
// it close and exit their loops; further Publish calls are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// DroppedCount returns the total number of events dropped due to slow
// subscribers.
func (b *Broker) DroppedCount() int64 {
	return b.dropped.Load()
}
