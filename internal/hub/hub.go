// Package hub implements the broadcast side of the tabletop system: a
// churn-tolerant multi-subscriber fan-out of newline-delimited JSON events
// and the TCP acceptor that feeds it.
package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/timeutil"
)

// statsInterval paces the periodic delivery-stats log line.
const statsInterval = 5 * time.Second

// Subscriber is the writable side of one consumer connection. net.Conn
// satisfies it; tests substitute fakes.
type Subscriber interface {
	Write(p []byte) (int, error)
	SetWriteDeadline(t time.Time) error
}

// Hub holds the live subscriber set and fans published events out to every
// member. A failing subscriber is detected during the delivery sweep and
// dropped after it; its failure never propagates to other subscribers or to
// publishers.
type Hub struct {
	writeTimeout time.Duration
	clock        timeutil.Clock

	mu          sync.Mutex
	subscribers map[string]Subscriber
	published   uint64
	dropped     uint64
	lastStats   time.Time
}

// HubConfig holds hub tuning.
type HubConfig struct {
	// WriteTimeout bounds one delivery attempt to one subscriber so a
	// stalled peer cannot wedge the sweep. Zero disables the deadline.
	WriteTimeout time.Duration

	// Clock drives the write deadlines and stats pacing. Defaults to the
	// real clock.
	Clock timeutil.Clock
}

// New creates an empty hub.
func New(cfg HubConfig) *Hub {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Hub{
		writeTimeout: cfg.WriteTimeout,
		clock:        clock,
		subscribers:  make(map[string]Subscriber),
	}
}

// Subscribe adds a subscriber to the set and returns its handle id.
func (h *Hub) Subscribe(sub Subscriber) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.subscribers[id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()
	monitoring.Logf("hub: subscriber %s joined (total %d)", id, count)
	return id
}

// Unsubscribe removes a subscriber from the set. Removing an already-absent
// id is a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	_, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	count := len(h.subscribers)
	h.mu.Unlock()
	if ok {
		monitoring.Logf("hub: subscriber %s left (remaining %d)", id, count)
	}
}

// Count returns the current subscriber count.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Published returns the number of events published so far.
func (h *Hub) Published() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.published
}

// Publish serializes the event once and attempts delivery to every
// subscriber present when the sweep begins. Handles whose delivery failed
// are collected during the sweep and removed after it. Events published
// from one callsite reach every subscriber in publish-call order; nothing
// is queued or replayed for late joiners.
func (h *Hub) Publish(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	line := append(data, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	var failed []string
	for id, sub := range h.subscribers {
		if h.writeTimeout > 0 {
			sub.SetWriteDeadline(h.clock.Now().Add(h.writeTimeout))
		}
		if _, err := sub.Write(line); err != nil {
			monitoring.Logf("hub: delivery to %s failed: %v", id, err)
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		delete(h.subscribers, id)
		h.dropped++
	}

	h.published++
	h.logStatsLocked()
	return nil
}

// logStatsLocked emits a delivery-stats line at most every statsInterval.
// Callers hold h.mu.
func (h *Hub) logStatsLocked() {
	now := h.clock.Now()
	if h.lastStats.IsZero() {
		h.lastStats = now
		return
	}
	if now.Sub(h.lastStats) < statsInterval {
		return
	}
	monitoring.Logf("hub: stats published=%d dropped=%d subscribers=%d",
		h.published, h.dropped, len(h.subscribers))
	h.lastStats = now
}
