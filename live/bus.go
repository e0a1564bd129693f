// Package live runs the real-time control loop: independently scheduled
// jobs (price refresh, signal generation, gating and execution) that
// communicate over an in-process publish/subscribe bus instead of shared
// globals. Only the gate and portfolio state are shared, behind one mutex
// per trading cycle.
package live

import "sync"

// Event is one message on the bus.
type Event struct {
	Topic   string
	Payload any
}

// Bus is a bounded-channel pub/sub hub. Publish never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber,
// which keeps a slow observer from stalling the trading cycle.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe returns a bounded channel receiving events for the topic.
func (b *Bus) Subscribe(topic string, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber with buffer room.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- Event{Topic: topic, Payload: payload}:
		default:
		}
	}
}
