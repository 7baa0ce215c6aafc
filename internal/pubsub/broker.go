// Package pubsub provides the in-memory domain event broker. Delivery is
// best-effort fan-out to the currently connected subscribers: nothing is
// persisted, nothing is replayed, and a subscriber that falls behind
// loses events rather than blocking publishers.
package pubsub

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Topic names one domain event channel.
type Topic string

// The three domain event channels, each carrying exactly the newly
// created record.
const (
	TopicNewStory   Topic = "newStory"
	TopicNewComment Topic = "newComment"
	TopicNewLike    Topic = "newLike"
)

// subscriberBuffer is the per-subscriber channel capacity. Publishing to
// a full buffer drops the event for that subscriber.
const subscriberBuffer = 16

// subscriber is one live subscription on one topic.
type subscriber struct {
	ch chan interface{}
}

// Broker fans published events out to subscribers, keyed by topic.
// Safe for concurrent use; process-lifetime scope.
type Broker struct {
	mu     sync.RWMutex
	subs   map[Topic]map[uint64]*subscriber
	nextID uint64
	logger *zap.Logger
}

// NewBroker creates an empty broker.
func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		subs:   make(map[Topic]map[uint64]*subscriber),
		logger: logger,
	}
}

// Subscribe registers a listener on topic. The returned channel receives
// every event published while the subscription is live and is closed
// when ctx is done.
func (b *Broker) Subscribe(ctx context.Context, topic Topic) <-chan interface{} {
	sub := &subscriber{ch: make(chan interface{}, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*subscriber)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = sub
	b.mu.Unlock()

	recordSubscribed(string(topic))

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[topic], id)
		close(sub.ch)
		b.mu.Unlock()
		recordUnsubscribed(string(topic))
	}()

	return sub.ch
}

// Publish fans payload out to every current subscriber of topic. It
// never blocks: a subscriber whose buffer is full simply misses the
// event.
func (b *Broker) Publish(topic Topic, payload interface{}) {
	// Sends happen under the read lock so an unsubscribe (which closes
	// the channel under the write lock) can never interleave with them.
	// Sends are non-blocking, so the lock is held only briefly.
	b.mu.RLock()
	total := len(b.subs[topic])
	delivered := 0
	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- payload:
			delivered++
		default:
			recordDropped(string(topic))
		}
	}
	b.mu.RUnlock()

	recordPublished(string(topic), delivered)

	b.logger.Debug("event published",
		zap.String("topic", string(topic)),
		zap.Int("subscribers", total),
		zap.Int("delivered", delivered),
	)
}

// SubscriberCount returns the number of live subscriptions on topic.
func (b *Broker) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
