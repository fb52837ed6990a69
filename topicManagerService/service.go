// Package topicManagerService provides topic management functionality for the
// gated Pub/Sub system.
package topicManagerService

import (
	"github.com/tanmay-xvx/gated-pubsub/internals/config"
	"github.com/tanmay-xvx/gated-pubsub/internals/metrics"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/internals/registry"
	"github.com/tanmay-xvx/gated-pubsub/internals/topic"
)

// TopicManagerServiceImpl implements the TopicManager interface using the registry.
type TopicManagerServiceImpl struct {
	registry *registry.Registry
	cfg      *config.Config
	metrics  *metrics.Metrics
}

// NewTopicManagerService creates a new topic manager service with the specified dependencies.
func NewTopicManagerService(registry *registry.Registry, cfg *config.Config, metrics *metrics.Metrics) *TopicManagerServiceImpl {
	return &TopicManagerServiceImpl{
		registry: registry,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// CreateTopic creates a new topic with the specified name.
func (s *TopicManagerServiceImpl) CreateTopic(name string) error {
	return s.registry.CreateTopic(name)
}

// DeleteTopic deletes a topic with the specified name.
func (s *TopicManagerServiceImpl) DeleteTopic(name string) error {
	return s.registry.DeleteTopic(name)
}

// ListTopics returns a list of all topics with their information.
func (s *TopicManagerServiceImpl) ListTopics() []TopicInfo {
	registryTopics := s.registry.ListTopics()
	topics := make([]TopicInfo, len(registryTopics))
	for i, rt := range registryTopics {
		topics[i] = TopicInfo{
			Name:        rt.Name,
			Active:      rt.Active,
			Subscribers: rt.Subscribers,
			Messages:    rt.Messages,
			Dropped:     rt.Dropped,
			Latched:     rt.Latched,
		}
	}
	return topics
}

// GetTopic returns a topic with the specified name and a boolean indicating if it exists.
func (s *TopicManagerServiceImpl) GetTopic(name string) (*topic.Topic, bool) {
	return s.registry.GetTopic(name)
}

// Publish routes a message through the topic's gated publisher and reports
// whether it was forwarded.
func (s *TopicManagerServiceImpl) Publish(topicName string, msg models.Message) (bool, error) {
	return s.registry.PublishMessage(topicName, msg)
}

// SetTopicActive sets the publish gate for the topic's publisher.
func (s *TopicManagerServiceImpl) SetTopicActive(name string, active bool) error {
	return s.registry.SetActive(name, active)
}

// TopicState returns the publisher-side state of a topic.
func (s *TopicManagerServiceImpl) TopicState(name string) (TopicState, error) {
	pub, exists := s.registry.GetPublisher(name)
	if !exists {
		return TopicState{}, registry.ErrTopicNotFound
	}

	t, _ := s.registry.GetTopic(name)
	latched := false
	if t != nil {
		latched = t.Latched()
	}

	return TopicState{
		Name:           name,
		Active:         pub.Active(),
		Subscribers:    pub.SubscriberCount(),
		HasSubscribers: pub.HasAnySubscribers(),
		Latched:        latched,
	}, nil
}

// Stats returns statistics for all topics.
func (s *TopicManagerServiceImpl) Stats() map[string]TopicStats {
	registryTopics := s.registry.ListTopics()
	stats := make(map[string]TopicStats)
	for _, rt := range registryTopics {
		stats[rt.Name] = TopicStats{
			Name:        rt.Name,
			Active:      rt.Active,
			Subscribers: rt.Subscribers,
			Messages:    rt.Messages,
			Dropped:     rt.Dropped,
		}
	}
	return stats
}
