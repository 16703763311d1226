// Package observability aggregates runtime counters for the stats endpoint.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the wire shape served by GET /api/stats.
type Snapshot struct {
	MessagesAppended uint64  `json:"messages_appended"`
	EventsDelivered  uint64  `json:"events_delivered"`
	EventsDropped    uint64  `json:"events_dropped"`
	ConnectionsOpen  int64   `json:"connections_open"`
	RSSBytes         uint64  `json:"rss_bytes"`
	CPUPercent       float64 `json:"cpu_percent"`
	SampledAt        string  `json:"sampled_at,omitempty"`
}

// Stats is safe for concurrent use; counters are atomic and the process
// sample is guarded separately.
type Stats struct {
	messagesAppended atomic.Uint64
	eventsDelivered  atomic.Uint64
	eventsDropped    atomic.Uint64
	connectionsOpen  atomic.Int64

	mu        sync.RWMutex
	rssBytes  uint64
	cpu       float64
	sampledAt time.Time
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) MessageAppended() { s.messagesAppended.Add(1) }
func (s *Stats) EventDelivered()  { s.eventsDelivered.Add(1) }
func (s *Stats) EventDropped()    { s.eventsDropped.Add(1) }
func (s *Stats) ConnOpened()      { s.connectionsOpen.Add(1) }
func (s *Stats) ConnClosed()      { s.connectionsOpen.Add(-1) }

// RecordProcessSample stores the latest self-measurement of the process.
func (s *Stats) RecordProcessSample(rssBytes uint64, cpuPercent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rssBytes = rssBytes
	s.cpu = cpuPercent
	s.sampledAt = time.Now().UTC()
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		MessagesAppended: s.messagesAppended.Load(),
		EventsDelivered:  s.eventsDelivered.Load(),
		EventsDropped:    s.eventsDropped.Load(),
		ConnectionsOpen:  s.connectionsOpen.Load(),
		RSSBytes:         s.rssBytes,
		CPUPercent:       s.cpu,
	}
	if !s.sampledAt.IsZero() {
		snap.SampledAt = s.sampledAt.Format(time.RFC3339)
	}
	return snap
}
