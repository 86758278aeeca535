package pubsub

import (
	"context"
	"errors"
	"sync"
)

// ErrShutdown is returned by Subscribe after the bus has been shut down.
var ErrShutdown = errors.New("event bus is shut down")

// Bus fans routing change events out to in-process subscribers.
// Publishers never block: a subscriber whose buffer is full misses
// the event rather than stalling the write path.
type Bus struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription is one subscriber's view of a topic.
type Subscription struct {
	topic     string
	channel   chan Event
	bus       *Bus
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe registers for events on a topic. The subscription is
// removed when ctx is canceled or Unsubscribe is called.
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan Event, 100), // Buffer for events
		bus:     b,
		ctx:     subCtx,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish delivers an event to every subscriber of its topic.
// Subscribers are snapshotted under lock so a concurrent Unsubscribe
// cannot race the iteration, and sends happen outside the lock.
func (b *Bus) Publish(evt Event) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	b.mu.RLock()
	topicSubs := b.subscribers[evt.Topic]
	if len(topicSubs) == 0 {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.channel <- evt:
			// Event sent
		default:
			// Channel full, skip (non-blocking)
		}
	}
}

// PublishReplaced publishes a routing.replaced event for a model.
func (b *Bus) PublishReplaced(modelID string, areas int) Event {
	evt := NewEvent(TopicRoutingReplaced, modelID, areas)
	b.Publish(evt)
	return evt
}

// PublishDeleted publishes a routing.deleted event for a model.
func (b *Bus) PublishDeleted(modelID string) Event {
	evt := NewEvent(TopicRoutingDeleted, modelID, 0)
	b.Publish(evt)
	return evt
}

// GetSubscriberCount returns the number of subscribers for a topic.
func (b *Bus) GetSubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.subscribers[topic] == nil {
		return 0
	}

	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions. Further Publish calls are no-ops
// and further Subscribe calls return ErrShutdown. Safe to call twice.
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Channel returns the subscription's event channel. It is closed on
// Unsubscribe, context cancellation or bus shutdown.
func (s *Subscription) Channel() <-chan Event {
	return s.channel
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.bus.subscribers[s.topic] != nil {
		delete(s.bus.subscribers[s.topic], s)
		if len(s.bus.subscribers[s.topic]) == 0 {
			delete(s.bus.subscribers, s.topic)
		}
	}

	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
