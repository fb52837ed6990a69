// Package http provides the WebSocket endpoint for the subscriber service.
package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/tanmay-xvx/gated-pubsub/subscriberService"
)

// RegisterSubscriberRoutes registers all subscriber service HTTP routes with
// the provided chi router. This mounts:
//   - GET /ws - WebSocket endpoint for peer connections
func RegisterSubscriberRoutes(r chi.Router, svc subscriberService.SubscriberService) {
	handler := NewWebSocketHandler(svc)
	r.Get("/ws", handler.HandleWebSocket)
}
