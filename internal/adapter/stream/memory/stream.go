package memorystream

import (
	"context"
	"sync"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/trade"
)

const defaultBuffer = 64

// Bus is an in-process event stream keyed by trade id. Subscribers get
// events in publish order; a subscriber that stops draining its channel
// loses events rather than blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber
	buffer int
}

var _ ports.EventPublisher = (*Bus)(nil)

type subscriber struct {
	ch   chan trade.Event
	once sync.Once
}

func NewBus() *Bus {
	return &Bus{
		subs:   map[string][]*subscriber{},
		buffer: defaultBuffer,
	}
}

func (b *Bus) Publish(_ context.Context, ev trade.Event) error {
	b.mu.RLock()
	subs := b.subs[ev.TradeID]
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			// Slow subscriber, drop for it.
		}
	}
	return nil
}

// Subscribe registers for events on one trade. The cancel func removes
// the subscription and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(tradeID string) (<-chan trade.Event, func()) {
	s := &subscriber{ch: make(chan trade.Event, b.buffer)}

	b.mu.Lock()
	b.subs[tradeID] = append(b.subs[tradeID], s)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		list := b.subs[tradeID]
		for i, other := range list {
			if other == s {
				b.subs[tradeID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(b.subs[tradeID]) == 0 {
			delete(b.subs, tradeID)
		}
		b.mu.Unlock()
		s.once.Do(func() { close(s.ch) })
	}
	return s.ch, cancel
}
