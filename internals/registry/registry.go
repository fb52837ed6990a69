// Package registry provides topic lifecycle management for the gated Pub/Sub
// system. Every topic is paired with a gated publisher wrapping the topic's
// transport endpoint; all publishes route through the gate.
package registry

import (
	"log"
	"sync"
	"time"

	"github.com/tanmay-xvx/gated-pubsub/internals/config"
	"github.com/tanmay-xvx/gated-pubsub/internals/metrics"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/internals/topic"
	"github.com/tanmay-xvx/gated-pubsub/publisher"
)

// TopicInfo provides information about a topic for listing and monitoring.
type TopicInfo struct {
	Name           string `json:"name"`
	Active         bool   `json:"active"`
	Subscribers    int    `json:"subscribers"`
	Messages       uint64 `json:"messages"`
	Dropped        uint64 `json:"dropped"`
	Latched        bool   `json:"latched"`
	RingBufferSize int    `json:"ring_buffer_size"`
}

// entry pairs a topic with its transport endpoint and gated publisher.
type entry struct {
	topic     *topic.Topic
	publisher *publisher.GatedPublisher
}

// Registry manages all topics in the system with thread-safe operations.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	cfg     *config.Config
	metrics *metrics.Metrics
}

// NewRegistry creates a new topic registry with the specified configuration and metrics.
func NewRegistry(cfg *config.Config, metrics *metrics.Metrics) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		cfg:     cfg,
		metrics: metrics,
	}
}

// CreateTopic creates a new topic together with its gated publisher.
// Returns an error if the topic already exists.
func (r *Registry) CreateTopic(name string) error {
	if name == "" {
		return ErrInvalidTopicName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return ErrTopicAlreadyExists
	}

	newTopic := topic.NewTopic(name, r.cfg.DefaultRingBufferSize, r.cfg.DefaultLatch)

	endpoint := topic.NewEndpoint(newTopic, r.cfg.DefaultPublishPolicy, func(delivered, dropped int) {
		r.metrics.IncDelivered(name, delivered)
		r.metrics.IncDropped(name, dropped)
	})

	pub := publisher.New(endpoint)
	pub.RegisterChangeCallback(func(p *publisher.GatedPublisher) {
		count := p.SubscriberCount()
		r.metrics.SetTopicSubscribers(name, count)
		log.Printf("Topic %s: subscriber count changed to %d", name, count)
	})
	if !r.cfg.DefaultActive {
		pub.SetActive(false)
	}

	r.entries[name] = &entry{topic: newTopic, publisher: pub}
	r.metrics.IncTopics()

	log.Printf("Created topic: %s (latch=%v, active=%v)", name, newTopic.Latched(), pub.Active())
	return nil
}

// DeleteTopic deletes a topic, notifying all peers with a "topic_deleted"
// frame before closing them.
func (r *Registry) DeleteTopic(name string) error {
	if name == "" {
		return ErrInvalidTopicName
	}

	r.mu.Lock()
	e, exists := r.entries[name]
	if exists {
		delete(r.entries, name)
	}
	r.mu.Unlock()

	if !exists {
		return ErrTopicNotFound
	}

	peerIDs := e.topic.ListSubscriberIDs()
	notification := models.ServerMsg{
		Type:  "topic_deleted",
		Topic: name,
		Ts:    time.Now(),
	}
	for _, clientID := range peerIDs {
		if sub, found := e.topic.GetSubscriber(clientID); found {
			sub.TrySend(notification)
		}
	}

	e.topic.Close()
	r.metrics.RemoveTopic(name)
	r.metrics.DecTopics()

	log.Printf("Deleted topic: %s (closed %d peers)", name, len(peerIDs))
	return nil
}

// GetTopic retrieves a topic by name.
func (r *Registry) GetTopic(name string) (*topic.Topic, bool) {
	if name == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return e.topic, true
}

// GetPublisher retrieves the gated publisher for a topic.
func (r *Registry) GetPublisher(name string) (*publisher.GatedPublisher, bool) {
	if name == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return e.publisher, true
}

// SetActive sets the publish gate for a topic's publisher.
func (r *Registry) SetActive(name string, active bool) error {
	pub, exists := r.GetPublisher(name)
	if !exists {
		return ErrTopicNotFound
	}

	pub.SetActive(active)
	log.Printf("Topic %s: publisher active=%v", name, active)
	return nil
}

// PublishMessage publishes a message to a topic through its gated publisher
// and reports whether it was forwarded. A publish suppressed by an inactive
// gate is not an error. The counters follow the publisher's own report, so
// they stay exact when the gate is toggled concurrently.
func (r *Registry) PublishMessage(topicName string, msg models.Message) (bool, error) {
	pub, exists := r.GetPublisher(topicName)
	if !exists {
		return false, ErrTopicNotFound
	}

	published, err := pub.TryPublish(msg)
	if published {
		r.metrics.IncPublished(topicName)
	} else {
		r.metrics.IncSuppressed(topicName)
	}
	return published, err
}

// ListTopics returns information about all topics in the registry.
func (r *Registry) ListTopics() []TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]TopicInfo, 0, len(r.entries))
	for name, e := range r.entries {
		topics = append(topics, TopicInfo{
			Name:           name,
			Active:         e.publisher.Active(),
			Subscribers:    e.publisher.SubscriberCount(),
			Messages:       e.topic.GetMessageCount(),
			Dropped:        e.topic.GetDroppedCount(),
			Latched:        e.topic.Latched(),
			RingBufferSize: e.topic.GetRingBufferSize(),
		})
	}

	return topics
}

// GetTopicCount returns the total number of topics in the registry.
func (r *Registry) GetTopicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// GetTotalSubscriberCount returns the total number of peers across all topics.
func (r *Registry) GetTotalSubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, e := range r.entries {
		total += e.topic.NumConnections()
	}
	return total
}

// Close deletes every topic in the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	log.Printf("Closing registry with %d topics", len(entries))
	for name, e := range entries {
		e.topic.Close()
		r.metrics.RemoveTopic(name)
		r.metrics.DecTopics()
	}
}
