// Package metrics provides counters for the gated Pub/Sub system.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Metrics tracks global and per-topic counters. Suppressed counts publishes
// that were gated off by an inactive publisher and therefore never reached
// the transport.
type Metrics struct {
	totalTopics     uint64
	totalMessages   uint64
	totalSuppressed uint64
	totalDropped    uint64

	mu     sync.RWMutex
	topics map[string]*TopicMetrics
}

// TopicMetrics tracks counters for a single topic.
type TopicMetrics struct {
	Name        string
	Published   uint64
	Suppressed  uint64
	Delivered   uint64
	Dropped     uint64
	Subscribers uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		topics: make(map[string]*TopicMetrics),
	}
}

// topicLocked returns the per-topic record, creating it if needed.
// Caller must hold mu.
func (m *Metrics) topicLocked(topic string) *TopicMetrics {
	tm := m.topics[topic]
	if tm == nil {
		tm = &TopicMetrics{Name: topic}
		m.topics[topic] = tm
	}
	return tm
}

// IncPublished increments the published counter for a topic.
func (m *Metrics) IncPublished(topic string) {
	atomic.AddUint64(&m.totalMessages, 1)

	m.mu.Lock()
	m.topicLocked(topic).Published++
	m.mu.Unlock()
}

// IncSuppressed increments the gated-publish counter for a topic.
func (m *Metrics) IncSuppressed(topic string) {
	atomic.AddUint64(&m.totalSuppressed, 1)

	m.mu.Lock()
	m.topicLocked(topic).Suppressed++
	m.mu.Unlock()
}

// IncDelivered adds n to the delivered counter for a topic.
func (m *Metrics) IncDelivered(topic string, n int) {
	if n <= 0 {
		return
	}

	m.mu.Lock()
	m.topicLocked(topic).Delivered += uint64(n)
	m.mu.Unlock()
}

// IncDropped adds n to the dropped counter for a topic.
func (m *Metrics) IncDropped(topic string, n int) {
	if n <= 0 {
		return
	}

	atomic.AddUint64(&m.totalDropped, uint64(n))

	m.mu.Lock()
	m.topicLocked(topic).Dropped += uint64(n)
	m.mu.Unlock()
}

// IncTopics increments the total topics counter.
func (m *Metrics) IncTopics() {
	atomic.AddUint64(&m.totalTopics, 1)
}

// DecTopics decrements the total topics counter.
func (m *Metrics) DecTopics() {
	atomic.AddUint64(&m.totalTopics, ^uint64(0))
}

// SetTopicSubscribers records the current subscriber count for a topic.
// Wired as a publisher change callback, so it tracks the gated publisher's
// cached count.
func (m *Metrics) SetTopicSubscribers(topic string, count int) {
	if count < 0 {
		count = 0
	}

	m.mu.Lock()
	m.topicLocked(topic).Subscribers = uint64(count)
	m.mu.Unlock()
}

// RemoveTopic drops the per-topic counters for a deleted topic.
func (m *Metrics) RemoveTopic(topic string) {
	m.mu.Lock()
	delete(m.topics, topic)
	m.mu.Unlock()
}

// GetTopicMetrics returns a copy of the counters for a specific topic,
// or nil if the topic has no recorded counters.
func (m *Metrics) GetTopicMetrics(topic string) *TopicMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tm, exists := m.topics[topic]; exists {
		cp := *tm
		return &cp
	}
	return nil
}

// Snapshot returns a copy of the current counters suitable for JSON serialization.
func (m *Metrics) Snapshot() map[string]interface{} {
	snapshot := make(map[string]interface{})

	snapshot["global"] = map[string]interface{}{
		"topics":     atomic.LoadUint64(&m.totalTopics),
		"messages":   atomic.LoadUint64(&m.totalMessages),
		"suppressed": atomic.LoadUint64(&m.totalSuppressed),
		"dropped":    atomic.LoadUint64(&m.totalDropped),
	}

	m.mu.RLock()
	topics := make(map[string]map[string]interface{})
	for name, tm := range m.topics {
		topics[name] = map[string]interface{}{
			"published":   tm.Published,
			"suppressed":  tm.Suppressed,
			"delivered":   tm.Delivered,
			"dropped":     tm.Dropped,
			"subscribers": tm.Subscribers,
		}
	}
	m.mu.RUnlock()

	snapshot["topics"] = topics
	return snapshot
}
