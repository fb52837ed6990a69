// Package subscriberService provides peer management functionality for the
// gated Pub/Sub system.
package subscriberService

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/tanmay-xvx/gated-pubsub/internals/config"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/topicManagerService"
)

// SubscriberService defines the interface for managing peers and handling
// WebSocket connections. The service depends on the TopicManager to locate
// topics and to route publishes through each topic's gated publisher.
type SubscriberService interface {
	// Start initializes the service and prepares resources for operation.
	Start() error

	// Shutdown gracefully shuts down the service, closing all active
	// connections. The context can be used to set a timeout.
	Shutdown(ctx context.Context) error

	// Publish routes a message to a topic through its gated publisher.
	// A publish gated off by an inactive publisher succeeds with no effect.
	Publish(topic string, msg models.Message) error

	// RegisterConnection tracks a WebSocket connection so Shutdown can close it.
	RegisterConnection(conn *websocket.Conn)

	// UnregisterConnection stops tracking a WebSocket connection.
	UnregisterConnection(conn *websocket.Conn)

	// GetTopicManager returns the topic manager used by this service.
	// WebSocket handlers use it to access topic operations.
	GetTopicManager() topicManagerService.TopicManager

	// GetConfig returns the service configuration. WebSocket handlers use it
	// for peer buffer sizes and write timeouts.
	GetConfig() *config.Config
}
