// Package notify provides the push-style change streams for the tracker:
// callers subscribe to a logical collection (an account's children, a
// child's vaccinations) and receive an event whenever the engine writes to
// it. Cancelling a subscription is deterministic: once Cancel returns, no
// further events are delivered on the channel.
package notify

import (
	"sync"
	"time"
)

// Event describes one change to a logical collection.
type Event struct {
	Topic     string    `json:"topic"`
	Action    string    `json:"action"` // "created", "updated" or "deleted"
	AccountID string    `json:"accountId"`
	ChildID   string    `json:"childId,omitempty"`
	At        time.Time `json:"at"`
}

// Topic builders for the logical collections the engine exposes.
func ChildrenTopic(accountID string) string   { return "children/" + accountID }
func SchedulesTopic(childID string) string    { return "schedules/" + childID }
func VaccinationsTopic(childID string) string { return "vaccinations/" + childID }

// Broker is the publish/subscribe surface the service writes to and
// streaming consumers read from.
type Broker interface {
	Publish(ev Event)
	Subscribe(topic string) *Subscription
}

// Subscription is one listener on a topic. Events arrive on C. A slow
// consumer does not block publishers; events past the channel buffer are
// dropped.
type Subscription struct {
	C <-chan Event

	topic string
	ch    chan Event
	hub   *Hub
	once  sync.Once
}

// Cancel detaches the subscription and closes C. It takes the same lock the
// hub publishes under, so no event is delivered after Cancel returns.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.subs[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.subs, s.topic)
			}
		}
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Hub is an in-process Broker.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a listener on a topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	ch := make(chan Event, 16)
	sub := &Subscription{C: ch, topic: topic, ch: ch, hub: h}

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers an event to every live subscription on its topic.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.Lock()
	for sub := range h.subs[ev.Topic] {
		select {
		case sub.ch <- ev:
		default: // drop rather than block the writer
		}
	}
	h.mu.Unlock()
}
