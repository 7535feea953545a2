// Package realtime fans change notifications out to subscribers. Events
// carry no payload beyond what changed; clients refetch.
package realtime

import (
	"sync"
	"time"

	"onebid/internal/domain"
)

type Event struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	ID    string `json:"id,omitempty"`
	At    string `json:"at"`
}

func ListingTopic(id string) string { return "listing:" + id }
func TableTopic(name string) string { return "table:" + name }

type subscriber struct {
	ch chan Event
}

// Hub is safe for concurrent use. Publish never blocks: a subscriber whose
// buffer is full misses the event and is dropped.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
	buffer int
	// OnChange observes the subscriber count delta.
	OnChange func(delta float64)
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*subscriber]struct{}), buffer: 16}
}

// Subscribe registers for topic. cancel must be called to release it.
func (h *Hub) Subscribe(topic string) (events <-chan Event, cancel func()) {
	s := &subscriber{ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[s] = struct{}{}
	h.mu.Unlock()
	h.changed(1)

	var once sync.Once
	return s.ch, func() {
		once.Do(func() { h.remove(topic, s) })
	}
}

func (h *Hub) remove(topic string, s *subscriber) {
	h.mu.Lock()
	subs := h.topics[topic]
	if _, ok := subs[s]; !ok {
		h.mu.Unlock()
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
	close(s.ch)
	h.mu.Unlock()
	h.changed(-1)
}

func (h *Hub) Publish(topic, kind, id string) {
	evt := Event{Type: kind, Topic: topic, ID: id, At: domain.Stamp(time.Now())}
	var slow []*subscriber
	h.mu.RLock()
	for s := range h.topics[topic] {
		select {
		case s.ch <- evt:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()
	for _, s := range slow {
		h.remove(topic, s)
	}
}

// Subscribers returns how many subscribers topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) changed(delta float64) {
	if h.OnChange != nil {
		h.OnChange(delta)
	}
}
