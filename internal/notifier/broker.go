package notifier

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ipregistry_notifier_subscribers",
	Help: "Live subscriptions on the in-process transition broker.",
})

// subscriberBuffer bounds how far one subscriber may fall behind before it is
// treated as disconnected.
const subscriberBuffer = 64

type subscriber struct {
	topic Topic
	ch    chan TransitionEvent
}

// MemoryBroker is the in-process Broker implementation. Each subscriber owns
// a buffered channel; a publisher that finds a buffer full drops that
// subscriber rather than blocking or stalling the remaining ones, so a stuck
// SSE connection can never back-pressure the engine.
type MemoryBroker struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewMemoryBroker(logger *slog.Logger) *MemoryBroker {
	return &MemoryBroker{
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Subscribe registers an observer on the topic. The returned cancel func is
// idempotent; after cancel the channel is closed and receives nothing more.
func (b *MemoryBroker) Subscribe(topic Topic) (<-chan TransitionEvent, func()) {
	sub := &subscriber{
		topic: topic,
		ch:    make(chan TransitionEvent, subscriberBuffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	subscribersGauge.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.drop(sub) })
	}
	return sub.ch, cancel
}

// Publish fans the event out to the all-transitions topic and the owner
// topic. Called synchronously per commit, so per-application order on any
// one subscription matches commit order.
func (b *MemoryBroker) Publish(event TransitionEvent) {
	ownerTopic := TopicOwner(event.Owner)

	b.mu.Lock()
	var stalled []*subscriber
	for sub := range b.subs {
		if sub.topic != TopicAll && sub.topic != ownerTopic {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			stalled = append(stalled, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range stalled {
		b.logger.Warn("dropping stalled subscriber",
			"topic", string(sub.topic),
			"application_id", event.ApplicationID,
		)
		b.drop(sub)
	}
}

// Close drops every subscriber. Further Subscribe calls return a closed
// channel; further Publish calls deliver to no one.
func (b *MemoryBroker) Close() {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		b.drop(sub)
	}
}

func (b *MemoryBroker) drop(sub *subscriber) {
	b.mu.Lock()
	_, ok := b.subs[sub]
	if ok {
		delete(b.subs, sub)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
		subscribersGauge.Dec()
	}
}
