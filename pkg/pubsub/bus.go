// Package pubsub fans editor and simulation events out to subscribers, such as
// the server-sent event stream of a scene.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when subscribing to a bus that has shut down.
var ErrClosed = errors.New("pubsub: bus closed")

const subscriberBuffer = 64

// Event is one notification.
type Event struct {
	Topic   string    `json:"topic"`
	Kind    string    `json:"kind"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// Publisher accepts events. Publishing never blocks.
type Publisher interface {
	Publish(topic, kind string, payload any)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(string, string, any) {}

// OrDiscard returns p, or Discard when p is nil.
func OrDiscard(p Publisher) Publisher {
	if p == nil {
		return Discard{}
	}
	return p
}

// SceneTopic is the topic carrying events for one scene.
func SceneTopic(sceneID string) string { return "scene:" + sceneID }

// Bus is an in-process Publisher with per-topic subscribers.
type Bus struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	closed  bool
	done    chan struct{}
	dropped atomic.Uint64
}

// NewBus returns an open bus.
func NewBus() *Bus {
	return &Bus{topics: make(map[string]map[*Subscription]struct{}), done: make(chan struct{})}
}

// Subscription receives the events of one topic until cancelled.
type Subscription struct {
	topic  string
	ch     chan Event
	bus    *Bus
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Subscribe registers for topic. The subscription ends when ctx is done, when
// Unsubscribe is called, or when the bus shuts down; its channel is then
// closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{topic: topic, ch: make(chan Event, subscriberBuffer), bus: b, cancel: cancel}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*Subscription]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-b.done:
			sub.close()
		}
	}()
	return sub, nil
}

// Publish delivers to every current subscriber of topic. Subscribers whose
// buffer is full miss the event.
func (b *Bus) Publish(topic, kind string, payload any) {
	ev := Event{Topic: topic, Kind: kind, Payload: payload, Time: time.Now().UTC()}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(b.topics[topic]))
	for s := range b.topics[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		s.send(ev)
	}
}

// Subscribers counts the subscribers of topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Dropped counts events lost to full subscriber buffers.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Shutdown closes every subscription. Later publishes are ignored.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	var subs []*Subscription
	for _, set := range b.topics {
		for s := range set {
			subs = append(subs, s)
		}
	}
	b.topics = make(map[string]map[*Subscription]struct{})
	b.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// C is the event channel.
func (s *Subscription) C() <-chan Event { return s.ch }

// Unsubscribe detaches the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	s.bus.mu.Lock()
	if set := s.bus.topics[s.topic]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.bus.topics, s.topic)
		}
	}
	s.bus.mu.Unlock()
	s.close()
}

func (s *Subscription) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.bus.dropped.Add(1)
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
