// Package models provides the wire-level data structures for the gated Pub/Sub system.
package models

import (
	"encoding/json"
	"time"
)

// Message represents a pub/sub message with unique identifier and raw payload.
type Message struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// WSClientMsg represents a WebSocket client frame with various operation types.
// LastN is honored on subscribe frames and requests replay of recent messages.
type WSClientMsg struct {
	Type      string   `json:"type"`
	Topic     string   `json:"topic,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	LastN     int      `json:"last_n,omitempty"`
	Message   *Message `json:"message,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// ServerMsg represents a server frame with optional error information.
// Replay marks messages re-delivered from the retained buffer (latched or
// last_n replay) rather than live publishes.
type ServerMsg struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Replay    bool      `json:"replay,omitempty"`
	Error     *ErrorObj `json:"error,omitempty"`
	Ts        time.Time `json:"ts,omitempty"`
}

// ErrorObj represents an error with code and message.
type ErrorObj struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServerError creates a new ServerMsg carrying error information.
func NewServerError(requestID, code, message string) *ServerMsg {
	return &ServerMsg{
		Type:      "error",
		RequestID: requestID,
		Error:     &ErrorObj{Code: code, Message: message},
		Ts:        time.Now(),
	}
}

// NewMessage creates a new Message with the specified ID and payload.
func NewMessage(id string, payload json.RawMessage) *Message {
	return &Message{
		ID:      id,
		Payload: payload,
	}
}
