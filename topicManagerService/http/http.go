// Package http provides HTTP handlers for the topic manager service.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/internals/registry"
	"github.com/tanmay-xvx/gated-pubsub/topicManagerService"
)

// Handler provides HTTP handlers for topic management operations.
type Handler struct {
	topicManager topicManagerService.TopicManager
	startTime    time.Time
}

// NewHandler creates a new HTTP handler with the specified topic manager.
func NewHandler(topicManager topicManagerService.TopicManager) *Handler {
	return &Handler{
		topicManager: topicManager,
		startTime:    time.Now(),
	}
}

// RegisterTopicManagerRoutes registers all topic manager HTTP routes with the
// provided chi router.
func RegisterTopicManagerRoutes(r chi.Router, tm topicManagerService.TopicManager) {
	NewHandler(tm).RegisterRoutes(r)
}

// RegisterRoutes registers all HTTP routes with the chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	// Add middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// API routes
	r.Route("/topics", func(r chi.Router) {
		r.Post("/", h.CreateTopic)
		r.Get("/", h.ListTopics)
		r.Get("/{name}", h.TopicState)
		r.Delete("/{name}", h.DeleteTopic)
		r.Put("/{name}/active", h.SetActive)
		r.Post("/{name}/publish", h.Publish)
	})

	// Health and stats endpoints
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
}

// CreateTopicRequest represents the request body for creating a topic.
type CreateTopicRequest struct {
	Name string `json:"name"`
}

// CreateTopicResponse represents the response for topic creation.
type CreateTopicResponse struct {
	Message string `json:"message"`
	Topic   string `json:"topic"`
}

// CreateTopic handles POST /topics requests.
// Expects JSON body: {"name": "topic-name"}
// Returns 201 Created on success, 409 Conflict if topic exists.
func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "Topic name is required")
		return
	}

	if err := h.topicManager.CreateTopic(req.Name); err != nil {
		h.writeTopicError(w, req.Name, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateTopicResponse{
		Message: "Topic created successfully",
		Topic:   req.Name,
	})
}

// DeleteTopic handles DELETE /topics/{name} requests.
// Returns 200 OK on success, 404 Not Found if topic doesn't exist.
func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	topicName := chi.URLParam(r, "name")
	if topicName == "" {
		h.writeError(w, http.StatusBadRequest, "Topic name is required")
		return
	}

	if err := h.topicManager.DeleteTopic(topicName); err != nil {
		h.writeTopicError(w, topicName, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Topic deleted successfully",
		"topic":   topicName,
	})
}

// TopicState handles GET /topics/{name} requests.
// Returns the publisher-side state of the topic: active flag, cached
// subscriber count and whether any peer is connected.
func (h *Handler) TopicState(w http.ResponseWriter, r *http.Request) {
	topicName := chi.URLParam(r, "name")

	state, err := h.topicManager.TopicState(topicName)
	if err != nil {
		h.writeTopicError(w, topicName, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}

// SetActiveRequest represents the request body for setting the publish gate.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive handles PUT /topics/{name}/active requests.
// Expects JSON body: {"active": true|false}
// The gate takes effect on the next publish to the topic.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	topicName := chi.URLParam(r, "name")

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.topicManager.SetTopicActive(topicName, req.Active); err != nil {
		h.writeTopicError(w, topicName, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"topic":  topicName,
		"active": req.Active,
	})
}

// PublishResponse represents the response for a REST publish.
type PublishResponse struct {
	Message   string `json:"message"`
	Topic     string `json:"topic"`
	Published bool   `json:"published"`
}

// Publish handles POST /topics/{name}/publish requests.
// Expects a JSON message body: {"id": "...", "payload": {...}}
// A publish gated off by an inactive publisher returns 200 with
// published=false; it is not an error.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	topicName := chi.URLParam(r, "name")

	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if msg.ID == "" {
		h.writeError(w, http.StatusBadRequest, "Message ID is required")
		return
	}

	published, err := h.topicManager.Publish(topicName, msg)
	if err != nil {
		h.writeTopicError(w, topicName, err)
		return
	}

	resp := PublishResponse{
		Topic:     topicName,
		Published: published,
	}
	if published {
		resp.Message = "Message published"
	} else {
		resp.Message = "Publisher inactive, message suppressed"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ListTopicsResponse represents the response for listing topics.
type ListTopicsResponse struct {
	Topics []topicManagerService.TopicInfo `json:"topics"`
}

// ListTopics handles GET /topics requests.
// Returns JSON response with list of all topics.
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics := h.topicManager.ListTopics()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ListTopicsResponse{Topics: topics})
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TopicsCount      int     `json:"topics_count"`
	TotalSubscribers int     `json:"total_subscribers"`
	Timestamp        string  `json:"timestamp"`
}

// Health handles GET /health requests.
// Returns system health information including uptime and counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	topics := h.topicManager.ListTopics()

	totalSubscribers := 0
	for _, t := range topics {
		totalSubscribers += t.Subscribers
	}

	response := HealthResponse{
		Status:           "healthy",
		UptimeSeconds:    time.Since(h.startTime).Seconds(),
		TopicsCount:      len(topics),
		TotalSubscribers: totalSubscribers,
		Timestamp:        time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Stats handles GET /stats requests.
// Returns detailed statistics for all topics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.topicManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"topics":    stats,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// writeTopicError maps registry sentinel errors to HTTP status codes.
func (h *Handler) writeTopicError(w http.ResponseWriter, topicName string, err error) {
	switch {
	case errors.Is(err, registry.ErrTopicNotFound):
		h.writeError(w, http.StatusNotFound, "Topic not found")
	case errors.Is(err, registry.ErrTopicAlreadyExists):
		h.writeError(w, http.StatusConflict, "Topic already exists")
	case errors.Is(err, registry.ErrInvalidTopicName):
		h.writeError(w, http.StatusBadRequest, "Invalid topic name")
	default:
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// writeError writes a standardized error response.
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}
