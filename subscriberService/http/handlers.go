// Package http provides the WebSocket endpoint for the subscriber service.
package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/internals/subscriber"
	"github.com/tanmay-xvx/gated-pubsub/subscriberService"
)

const (
	// WebSocket frame types
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
	MsgTypePublish     = "publish"
	MsgTypePing        = "ping"
	MsgTypePong        = "pong"
	MsgTypeAck         = "ack"
	MsgTypeError       = "error"
)

// WebSocketHandler manages WebSocket connections and handles client frames.
type WebSocketHandler struct {
	svc      subscriberService.SubscriberService
	upgrader websocket.Upgrader

	connsMu sync.RWMutex
	conns   map[*websocket.Conn]*connectionInfo
}

// connectionInfo tracks information about a WebSocket connection. The shared
// write-locked conn carries frames from every per-topic peer writer plus
// direct server replies.
type connectionInfo struct {
	clientID    string
	shared      *subscriber.Conn
	mu          sync.RWMutex
	subscribers map[string]*subscriber.Subscriber // topic -> peer
}

// NewWebSocketHandler creates a new WebSocket handler backed by the subscriber service.
func NewWebSocketHandler(svc subscriberService.SubscriberService) *WebSocketHandler {
	return &WebSocketHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
		conns: make(map[*websocket.Conn]*connectionInfo),
	}
}

// HandleWebSocket upgrades the HTTP request to WebSocket and handles the connection.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer h.cleanupConnection(conn)

	connInfo := &connectionInfo{
		clientID:    uuid.NewString(),
		shared:      subscriber.NewConn(conn),
		subscribers: make(map[string]*subscriber.Subscriber),
	}

	h.connsMu.Lock()
	h.conns[conn] = connInfo
	h.connsMu.Unlock()
	h.svc.RegisterConnection(conn)

	log.Printf("WebSocket connection established for client %s", connInfo.clientID)

	h.sendDirectMessage(connInfo, models.ServerMsg{
		Type: "connected",
		Message: &models.Message{
			ID:      "welcome",
			Payload: json.RawMessage(fmt.Sprintf(`{"client_id": "%s"}`, connInfo.clientID)),
		},
		Ts: time.Now(),
	})

	h.handleMessages(conn, connInfo)
}

// handleMessages reads and processes incoming WebSocket frames.
func (h *WebSocketHandler) handleMessages(conn *websocket.Conn, connInfo *connectionInfo) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error for client %s: %v", connInfo.clientID, err)
			}
			break
		}

		var clientMsg models.WSClientMsg
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			h.sendError(connInfo, "INVALID_JSON", "Invalid JSON frame")
			continue
		}

		switch clientMsg.Type {
		case MsgTypeSubscribe:
			h.handleSubscribe(connInfo, &clientMsg)
		case MsgTypeUnsubscribe:
			h.handleUnsubscribe(connInfo, &clientMsg)
		case MsgTypePublish:
			h.handlePublish(connInfo, &clientMsg)
		case MsgTypePing:
			h.handlePing(connInfo, &clientMsg)
		default:
			h.sendError(connInfo, "UNKNOWN_TYPE", fmt.Sprintf("Unknown frame type: %s", clientMsg.Type))
		}
	}
}

// handleSubscribe handles subscription requests. Connecting the peer to the
// topic fires the topic's peer-connect notification, which refreshes the
// gated publisher's subscriber count and runs its change callbacks.
func (h *WebSocketHandler) handleSubscribe(connInfo *connectionInfo, msg *models.WSClientMsg) {
	if msg.Topic == "" {
		h.sendError(connInfo, "MISSING_TOPIC", "Topic is required for subscription")
		return
	}

	topic, exists := h.svc.GetTopicManager().GetTopic(msg.Topic)
	if !exists {
		h.sendError(connInfo, "TOPIC_NOT_FOUND", fmt.Sprintf("Topic '%s' not found", msg.Topic))
		return
	}

	connInfo.mu.RLock()
	_, alreadySubscribed := connInfo.subscribers[msg.Topic]
	connInfo.mu.RUnlock()
	if alreadySubscribed {
		h.sendAck(connInfo, msg.RequestID, "Already subscribed to topic")
		return
	}

	cfg := h.svc.GetConfig()
	sub := subscriber.NewSubscriber(connInfo.clientID, connInfo.shared, cfg.DefaultPeerBufferSize)
	sub.StartWriter(cfg.WriteTimeout)

	// Queue requested history before connecting the peer. On a latched topic
	// the newest retained message arrives via AddSubscriber, so it is left
	// out of the replay here.
	if msg.LastN > 0 {
		history := topic.GetLastN(msg.LastN)
		if topic.Latched() && len(history) > 0 {
			history = history[:len(history)-1]
		}
		for i := range history {
			sub.TrySend(models.ServerMsg{
				Type:    "message",
				Topic:   topic.Name,
				Message: &history[i],
				Replay:  true,
				Ts:      time.Now(),
			})
		}
	}

	topic.AddSubscriber(sub)

	connInfo.mu.Lock()
	connInfo.subscribers[msg.Topic] = sub
	connInfo.mu.Unlock()

	h.sendAck(connInfo, msg.RequestID, fmt.Sprintf("Subscribed to topic '%s'", msg.Topic))

	log.Printf("Client %s subscribed to topic '%s'", connInfo.clientID, msg.Topic)
}

// handleUnsubscribe handles unsubscription requests. Removing the peer fires
// the topic's peer-disconnect notification.
func (h *WebSocketHandler) handleUnsubscribe(connInfo *connectionInfo, msg *models.WSClientMsg) {
	if msg.Topic == "" {
		h.sendError(connInfo, "MISSING_TOPIC", "Topic is required for unsubscription")
		return
	}

	connInfo.mu.Lock()
	sub, exists := connInfo.subscribers[msg.Topic]
	if !exists {
		connInfo.mu.Unlock()
		h.sendError(connInfo, "NOT_SUBSCRIBED", fmt.Sprintf("Not subscribed to topic '%s'", msg.Topic))
		return
	}
	delete(connInfo.subscribers, msg.Topic)
	connInfo.mu.Unlock()

	if topic, topicExists := h.svc.GetTopicManager().GetTopic(msg.Topic); topicExists {
		topic.RemoveSubscriber(connInfo.clientID)
	}

	sub.Close()

	h.sendAck(connInfo, msg.RequestID, fmt.Sprintf("Unsubscribed from topic '%s'", msg.Topic))

	log.Printf("Client %s unsubscribed from topic '%s'", connInfo.clientID, msg.Topic)
}

// handlePublish handles publish requests. The frame routes through the
// topic's gated publisher: while the publisher is inactive the frame is
// acknowledged but delivered nowhere.
func (h *WebSocketHandler) handlePublish(connInfo *connectionInfo, msg *models.WSClientMsg) {
	if msg.Topic == "" {
		h.sendError(connInfo, "MISSING_TOPIC", "Topic is required for publishing")
		return
	}

	if msg.Message == nil {
		h.sendError(connInfo, "MISSING_MESSAGE", "Message is required for publishing")
		return
	}

	if msg.Message.ID == "" {
		h.sendError(connInfo, "MISSING_MESSAGE_ID", "Message ID is required")
		return
	}

	if err := h.svc.Publish(msg.Topic, *msg.Message); err != nil {
		h.sendError(connInfo, "PUBLISH_FAILED", err.Error())
		return
	}

	h.sendAck(connInfo, msg.RequestID, fmt.Sprintf("Message accepted for topic '%s'", msg.Topic))

	log.Printf("Client %s published message to topic '%s'", connInfo.clientID, msg.Topic)
}

// handlePing responds to ping frames with pong.
func (h *WebSocketHandler) handlePing(connInfo *connectionInfo, msg *models.WSClientMsg) {
	h.sendDirectMessage(connInfo, models.ServerMsg{
		Type:      MsgTypePong,
		RequestID: msg.RequestID,
		Ts:        time.Now(),
	})
}

// sendAck sends an acknowledgment frame.
func (h *WebSocketHandler) sendAck(connInfo *connectionInfo, requestID, message string) {
	h.sendDirectMessage(connInfo, models.ServerMsg{
		Type:      MsgTypeAck,
		RequestID: requestID,
		Message: &models.Message{
			ID:      "ack",
			Payload: json.RawMessage(fmt.Sprintf(`{"message": "%s"}`, message)),
		},
		Ts: time.Now(),
	})
}

// sendError sends an error frame.
func (h *WebSocketHandler) sendError(connInfo *connectionInfo, code, message string) {
	h.sendDirectMessage(connInfo, models.ServerMsg{
		Type: MsgTypeError,
		Error: &models.ErrorObj{
			Code:    code,
			Message: message,
		},
		Ts: time.Now(),
	})
}

// sendDirectMessage writes a frame straight to the shared connection,
// serialized against the per-topic peer writers by the conn's write lock.
func (h *WebSocketHandler) sendDirectMessage(connInfo *connectionInfo, msg models.ServerMsg) {
	if err := connInfo.shared.WriteJSON(msg, 0); err != nil {
		log.Printf("Failed to send direct frame to client %s: %v", connInfo.clientID, err)
	}
}

// cleanupConnection removes the connection and cleans up all subscriptions,
// firing a peer-disconnect notification on every topic the client was
// subscribed to.
func (h *WebSocketHandler) cleanupConnection(conn *websocket.Conn) {
	h.connsMu.Lock()
	connInfo, exists := h.conns[conn]
	delete(h.conns, conn)
	h.connsMu.Unlock()

	h.svc.UnregisterConnection(conn)

	if !exists {
		conn.Close()
		return
	}

	connInfo.mu.Lock()
	for topicName, sub := range connInfo.subscribers {
		if topic, topicExists := h.svc.GetTopicManager().GetTopic(topicName); topicExists {
			topic.RemoveSubscriber(connInfo.clientID)
		}
		sub.Close()
	}
	connInfo.subscribers = make(map[string]*subscriber.Subscriber)
	connInfo.mu.Unlock()

	conn.Close()

	log.Printf("Cleaned up connection for client %s", connInfo.clientID)
}
