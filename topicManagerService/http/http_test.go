package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/tanmay-xvx/gated-pubsub/internals/config"
	"github.com/tanmay-xvx/gated-pubsub/internals/metrics"
	"github.com/tanmay-xvx/gated-pubsub/internals/registry"
	"github.com/tanmay-xvx/gated-pubsub/topicManagerService"
)

// newTestRouter wires a real registry behind the HTTP handlers.
func newTestRouter() (chi.Router, *topicManagerService.TopicManagerServiceImpl) {
	cfg := config.NewConfig()
	m := metrics.NewMetrics()
	reg := registry.NewRegistry(cfg, m)
	svc := topicManagerService.NewTopicManagerService(reg, cfg, m)

	router := chi.NewRouter()
	RegisterTopicManagerRoutes(router, svc)
	return router, svc
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateTopic(t *testing.T) {
	router, _ := newTestRouter()

	w := doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})
	if w.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Duplicate
	w = doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", w.Code)
	}

	// Missing name
	w = doJSON(t, router, "POST", "/topics", CreateTopicRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty name, got %d", w.Code)
	}
}

func TestTopicState(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})

	w := doJSON(t, router, "GET", "/topics/orders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var state topicManagerService.TopicState
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if !state.Active {
		t.Error("New topic's publisher should be active")
	}
	if state.Subscribers != 0 || state.HasSubscribers {
		t.Errorf("Expected 0 subscribers, got %d (has=%v)", state.Subscribers, state.HasSubscribers)
	}

	w = doJSON(t, router, "GET", "/topics/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", w.Code)
	}
}

func TestSetActive(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})

	w := doJSON(t, router, "PUT", "/topics/orders/active", SetActiveRequest{Active: false})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "GET", "/topics/orders", nil)
	var state topicManagerService.TopicState
	json.Unmarshal(w.Body.Bytes(), &state)
	if state.Active {
		t.Error("Publisher should be inactive after PUT active=false")
	}

	w = doJSON(t, router, "PUT", "/topics/missing/active", SetActiveRequest{Active: true})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", w.Code)
	}
}

func TestPublish_GatedByActiveFlag(t *testing.T) {
	router, svc := newTestRouter()
	doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})

	body := map[string]interface{}{"id": "m1", "payload": map[string]int{"n": 1}}

	// Active publisher forwards.
	w := doJSON(t, router, "POST", "/topics/orders/publish", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp PublishResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Published {
		t.Error("Expected published=true while active")
	}

	topic, _ := svc.GetTopic("orders")
	if topic.GetMessageCount() != 1 {
		t.Errorf("Expected 1 message on topic, got %d", topic.GetMessageCount())
	}

	// Inactive publisher suppresses, still 200.
	doJSON(t, router, "PUT", "/topics/orders/active", SetActiveRequest{Active: false})
	w = doJSON(t, router, "POST", "/topics/orders/publish", map[string]interface{}{"id": "m2"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for suppressed publish, got %d", w.Code)
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Published {
		t.Error("Expected published=false while inactive")
	}
	if topic.GetMessageCount() != 1 {
		t.Errorf("Suppressed publish must not reach the topic, count=%d", topic.GetMessageCount())
	}

	// Missing message ID.
	w = doJSON(t, router, "POST", "/topics/orders/publish", map[string]interface{}{"payload": 1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing message ID, got %d", w.Code)
	}

	// Unknown topic.
	w = doJSON(t, router, "POST", "/topics/missing/publish", body)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", w.Code)
	}
}

func TestListTopics(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})
	doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "invoices"})

	w := doJSON(t, router, "GET", "/topics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp ListTopicsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Topics) != 2 {
		t.Errorf("Expected 2 topics, got %d", len(resp.Topics))
	}
}

func TestDeleteTopic(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})

	w := doJSON(t, router, "DELETE", "/topics/orders", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	w = doJSON(t, router, "DELETE", "/topics/orders", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for already deleted topic, got %d", w.Code)
	}
}

func TestHealthAndStats(t *testing.T) {
	router, _ := newTestRouter()
	doJSON(t, router, "POST", "/topics", CreateTopicRequest{Name: "orders"})

	w := doJSON(t, router, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /health, got %d", w.Code)
	}
	var health HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", health.Status)
	}
	if health.TopicsCount != 1 {
		t.Errorf("Expected 1 topic in health response, got %d", health.TopicsCount)
	}

	w = doJSON(t, router, "GET", "/stats", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /stats, got %d", w.Code)
	}
}
