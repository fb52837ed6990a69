// Package subscriberService provides peer management functionality for the
// gated Pub/Sub system.
package subscriberService

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tanmay-xvx/gated-pubsub/internals/config"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/topicManagerService"
)

// SubscriberServiceImpl implements the SubscriberService interface.
type SubscriberServiceImpl struct {
	cfg      *config.Config
	topicMgr topicManagerService.TopicManager

	activeConnsMu sync.RWMutex
	activeConns   map[*websocket.Conn]struct{}
}

// NewSubscriberService creates a new subscriber service with the specified dependencies.
func NewSubscriberService(cfg *config.Config, topicMgr topicManagerService.TopicManager) *SubscriberServiceImpl {
	return &SubscriberServiceImpl{
		cfg:         cfg,
		topicMgr:    topicMgr,
		activeConns: make(map[*websocket.Conn]struct{}),
	}
}

// Start initializes the service and prepares resources for operation.
func (s *SubscriberServiceImpl) Start() error {
	log.Println("Starting subscriber service...")
	return nil
}

// Shutdown gracefully shuts down the service by closing all tracked
// connections. Closing a connection unblocks its reader loop, which performs
// per-connection cleanup (unsubscribing the peer from every topic).
func (s *SubscriberServiceImpl) Shutdown(ctx context.Context) error {
	log.Println("Shutting down subscriber service...")

	s.activeConnsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.activeConns))
	for conn := range s.activeConns {
		conns = append(conns, conn)
	}
	s.activeConns = make(map[*websocket.Conn]struct{})
	s.activeConnsMu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}

	log.Printf("Subscriber service shutdown complete (closed %d connections)", len(conns))
	return nil
}

// Publish routes a message to a topic through its gated publisher.
func (s *SubscriberServiceImpl) Publish(topic string, msg models.Message) error {
	_, err := s.topicMgr.Publish(topic, msg)
	return err
}

// RegisterConnection tracks a WebSocket connection.
func (s *SubscriberServiceImpl) RegisterConnection(conn *websocket.Conn) {
	s.activeConnsMu.Lock()
	s.activeConns[conn] = struct{}{}
	s.activeConnsMu.Unlock()
}

// UnregisterConnection stops tracking a WebSocket connection.
func (s *SubscriberServiceImpl) UnregisterConnection(conn *websocket.Conn) {
	s.activeConnsMu.Lock()
	delete(s.activeConns, conn)
	s.activeConnsMu.Unlock()
}

// GetActiveConnectionCount returns the number of tracked WebSocket connections.
func (s *SubscriberServiceImpl) GetActiveConnectionCount() int {
	s.activeConnsMu.RLock()
	defer s.activeConnsMu.RUnlock()
	return len(s.activeConns)
}

// GetTopicManager returns the topic manager used by this service.
func (s *SubscriberServiceImpl) GetTopicManager() topicManagerService.TopicManager {
	return s.topicMgr
}

// GetConfig returns the service configuration.
func (s *SubscriberServiceImpl) GetConfig() *config.Config {
	return s.cfg
}
