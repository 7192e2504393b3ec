// Package bus is a small in-process publish/subscribe bus with bounded,
// latest-wins subscription queues.
package bus

import (
	"sync"
	"sync/atomic"
)

// Message is one published value.
type Message struct {
	Topic   string
	Payload any
}

// Subscription receives messages published on one topic. When its queue is
// full the oldest pending message is discarded, so with depth 1 a late
// message supersedes an unconsumed one instead of queueing behind it.
type Subscription struct {
	topic string
	ch    chan Message
	bus   *Bus
	once  sync.Once
}

func (s *Subscription) Topic() string           { return s.topic }
func (s *Subscription) Channel() <-chan Message { return s.ch }

// Unsubscribe detaches the subscription and closes its channel.
func (s *Subscription) Unsubscribe() { s.bus.unsubscribe(s) }

// Bus routes messages by exact topic match.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]*Subscription
	closed  bool
	dropped atomic.Uint64
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]*Subscription)}
}

// Subscribe registers a subscription on topic with a queue of depth
// messages. A depth below 1 is treated as 1. Subscribing to a closed bus
// returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(topic string, depth int) *Subscription {
	if depth < 1 {
		depth = 1
	}
	sub := &Subscription{topic: topic, ch: make(chan Message, depth), bus: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub
}

// Publish delivers payload to every subscriber of topic without blocking and
// returns the number of subscribers reached.
func (b *Bus) Publish(topic string, payload any) int {
	msg := Message{Topic: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	subs := b.subs[topic]
	for _, sub := range subs {
		b.deliver(sub, msg)
	}
	return len(subs)
}

// deliver pushes msg, evicting the oldest queued message until it fits.
// The consumer may drain concurrently, so neither step blocks.
func (b *Bus) deliver(sub *Subscription, msg Message) {
	for {
		select {
		case sub.ch <- msg:
			return
		default:
		}
		select {
		case <-sub.ch:
			b.dropped.Add(1)
		default:
		}
	}
}

// Dropped returns how many queued messages were superseded before being
// consumed.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
	sub.once.Do(func() { close(sub.ch) })
}

// Close closes every subscription channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for _, sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(b.subs, topic)
	}
}
