package topic

import (
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
)

// Endpoint binds a Topic to a fixed delivery policy, exposing the narrow
// transport surface a gated publisher wraps: Publish, NumConnections and
// peer-event registration. The optional onDelivery hook receives per-publish
// delivered/dropped counts so callers can record delivery stats without the
// topic knowing about them.
type Endpoint struct {
	topic      *Topic
	policy     string
	onDelivery func(delivered, dropped int)
}

// NewEndpoint creates a transport endpoint over the given topic.
func NewEndpoint(t *Topic, policy string, onDelivery func(delivered, dropped int)) *Endpoint {
	if policy == "" {
		policy = PolicyDropOldest
	}
	return &Endpoint{
		topic:      t,
		policy:     policy,
		onDelivery: onDelivery,
	}
}

// Publish delivers the message to the topic's peers using the bound policy.
// Fails with ErrTopicClosed after the topic is closed.
func (e *Endpoint) Publish(msg models.Message) error {
	delivered, dropped, err := e.topic.Publish(msg, e.policy)
	if err != nil {
		return err
	}
	if e.onDelivery != nil {
		e.onDelivery(delivered, dropped)
	}
	return nil
}

// NumConnections returns the topic's current number of active peers.
func (e *Endpoint) NumConnections() int {
	return e.topic.NumConnections()
}

// NotifyPeerEvents registers a peer connect/disconnect handler on the topic.
func (e *Endpoint) NotifyPeerEvents(h func()) {
	e.topic.NotifyPeerEvents(h)
}

// Topic returns the underlying topic.
func (e *Endpoint) Topic() *Topic {
	return e.topic
}
