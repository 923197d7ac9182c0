// Package fanout delivers live snapshots to subscribers of a topic.
//
// Topics are plain strings; the chat service uses "conv:<id>" for message
// streams and "user:<id>" for conversation-list streams. Delivery is
// synchronous in the publisher's goroutine, so callers that serialize their
// publishes (the chat service holds a per-conversation lock) get per-topic
// ordering for free.
package fanout

import (
	"sync"

	"github.com/google/uuid"

	"github.com/suPer8Hu/gopherchat/internal/logger"
)

// Observer receives each published payload for a topic. It must not retain
// the payload's backing slices across calls.
type Observer func(payload any)

// Subscription is the handle returned by Subscribe. Cancel is idempotent and
// mutually exclusive with any in-flight delivery to the same handle.
type Subscription struct {
	id    string
	topic string

	mu        sync.Mutex
	cancelled bool
	observer  Observer

	hub *Hub
}

// Cancel stops further delivery. Safe to call multiple times and safe to call
// while a delivery is in flight; the delivery either completes first or is
// skipped.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.observer = nil
	s.mu.Unlock()

	s.hub.remove(s.topic, s.id)
}

// deliver invokes the observer unless the handle was cancelled. A panicking
// observer is isolated: it never breaks delivery to other subscribers of the
// same event, and it is not auto-removed (cancellation stays caller-driven).
func (s *Subscription) deliver(payload any, log *logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || s.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("observer panic", "topic", s.topic, "subscription", s.id, "panic", r)
		}
	}()
	s.observer(payload)
}

// Hub tracks subscriber sets per topic.
type Hub struct {
	log *logger.Logger

	mu     sync.RWMutex
	topics map[string]map[string]*Subscription
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:    log.With("component", "fanout"),
		topics: make(map[string]map[string]*Subscription),
	}
}

// Subscribe registers observer for topic. The caller owns the returned handle
// and is responsible for cancelling it.
func (h *Hub) Subscribe(topic string, observer Observer) *Subscription {
	sub := &Subscription{
		id:       uuid.NewString(),
		topic:    topic,
		observer: observer,
		hub:      h,
	}

	h.mu.Lock()
	set := h.topics[topic]
	if set == nil {
		set = make(map[string]*Subscription)
		h.topics[topic] = set
	}
	set[sub.id] = sub
	h.mu.Unlock()

	return sub
}

// Publish delivers payload to every current subscriber of topic, in the
// publisher's goroutine. Subscribers added while a publish is running may or
// may not see that event.
func (h *Hub) Publish(topic string, payload any) {
	h.mu.RLock()
	set := h.topics[topic]
	subs := make([]*Subscription, 0, len(set))
	for _, s := range set {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.deliver(payload, h.log)
	}
}

// SubscriberCount returns the number of active subscriptions for topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) remove(topic, id string) {
	h.mu.Lock()
	if set := h.topics[topic]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()
}
