// Package topicManagerService provides the interface for topic management operations.
package topicManagerService

import (
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/internals/topic"
)

// TopicInfo provides basic information about a topic for listing and monitoring.
type TopicInfo struct {
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	Subscribers int    `json:"subscribers"`
	Messages    uint64 `json:"messages"`
	Dropped     uint64 `json:"dropped"`
	Latched     bool   `json:"latched"`
}

// TopicState describes the publisher-side state of a single topic.
type TopicState struct {
	Name           string `json:"name"`
	Active         bool   `json:"active"`
	Subscribers    int    `json:"subscribers"`
	HasSubscribers bool   `json:"has_subscribers"`
	Latched        bool   `json:"latched"`
}

// TopicStats provides detailed statistics for a topic.
type TopicStats struct {
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	Subscribers int    `json:"subscribers"`
	Messages    uint64 `json:"messages"`
	Dropped     uint64 `json:"dropped"`
}

// TopicManager defines the interface for topic management operations.
// Implementations must be safe for concurrent use. Every topic owns a gated
// publisher; Publish and SetTopicActive operate on that publisher.
type TopicManager interface {
	// CreateTopic creates a new topic (and its gated publisher).
	// Returns an error if the topic already exists or the name is invalid.
	CreateTopic(name string) error

	// DeleteTopic deletes a topic and notifies all peers.
	// Returns an error if the topic doesn't exist or the name is invalid.
	DeleteTopic(name string) error

	// ListTopics returns information about all topics in the system.
	ListTopics() []TopicInfo

	// GetTopic retrieves a topic by name.
	// Returns (nil, false) if the topic doesn't exist.
	GetTopic(name string) (*topic.Topic, bool)

	// Publish routes a message through the topic's gated publisher and
	// reports whether it was forwarded. A publish gated off by an inactive
	// publisher succeeds with no effect.
	Publish(topicName string, msg models.Message) (bool, error)

	// SetTopicActive sets the publish gate for the topic's publisher.
	// Takes effect on the next publish.
	SetTopicActive(name string, active bool) error

	// TopicState returns the publisher-side state of a topic: active flag,
	// cached subscriber count and whether any peer is connected.
	TopicState(name string) (TopicState, error)

	// Stats returns detailed statistics for all topics, indexed by topic name.
	Stats() map[string]TopicStats
}
