package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/tanmay-xvx/gated-pubsub/internals/config"
	"github.com/tanmay-xvx/gated-pubsub/internals/metrics"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/internals/registry"
	"github.com/tanmay-xvx/gated-pubsub/subscriberService"
	"github.com/tanmay-xvx/gated-pubsub/topicManagerService"
)

// newTestStack wires the full service stack behind an httptest server with
// the /ws endpoint mounted.
func newTestStack(t *testing.T, cfg *config.Config) (*httptest.Server, topicManagerService.TopicManager) {
	t.Helper()

	if cfg == nil {
		cfg = config.NewConfig()
	}
	m := metrics.NewMetrics()
	reg := registry.NewRegistry(cfg, m)
	topicMgr := topicManagerService.NewTopicManagerService(reg, cfg, m)
	svc := subscriberService.NewSubscriberService(cfg, topicMgr)

	router := chi.NewRouter()
	RegisterSubscriberRoutes(router, svc)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		reg.Close()
	})
	return server, topicMgr
}

// dialWS connects to the test server's /ws endpoint and consumes the
// welcome frame.
func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	welcome := readFrame(t, ws)
	if welcome.Type != "connected" {
		t.Fatalf("Expected 'connected' welcome frame, got '%s'", welcome.Type)
	}
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) models.ServerMsg {
	t.Helper()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg models.ServerMsg
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	return msg
}

// readFrameOfType skips frames until one of the requested type arrives.
// Direct replies (acks) and writer-queued frames can interleave on the
// shared connection, so tests match on type instead of position.
func readFrameOfType(t *testing.T, ws *websocket.Conn, frameType string) models.ServerMsg {
	t.Helper()

	for i := 0; i < 20; i++ {
		msg := readFrame(t, ws)
		if msg.Type == frameType {
			return msg
		}
		if msg.Type == MsgTypeError {
			t.Fatalf("Unexpected error frame while waiting for '%s': %+v", frameType, msg.Error)
		}
	}
	t.Fatalf("No '%s' frame within 20 frames", frameType)
	return models.ServerMsg{}
}

func sendFrame(t *testing.T, ws *websocket.Conn, msg models.WSClientMsg) {
	t.Helper()

	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to send frame: %v", err)
	}
}

func subscribe(t *testing.T, ws *websocket.Conn, topic string) {
	t.Helper()

	sendFrame(t, ws, models.WSClientMsg{Type: MsgTypeSubscribe, Topic: topic, RequestID: "sub-" + topic})
	readFrameOfType(t, ws, MsgTypeAck)
}

func TestWebSocket_SubscribePublishReceive(t *testing.T) {
	server, topicMgr := newTestStack(t, nil)
	if err := topicMgr.CreateTopic("orders"); err != nil {
		t.Fatalf("CreateTopic failed: %v", err)
	}

	ws := dialWS(t, server)
	subscribe(t, ws, "orders")

	// The ack is sent after the peer is attached, so the publisher's cached
	// count is already refreshed here.
	state, err := topicMgr.TopicState("orders")
	if err != nil {
		t.Fatalf("TopicState failed: %v", err)
	}
	if state.Subscribers != 1 || !state.HasSubscribers {
		t.Errorf("Expected 1 subscriber after ack, got %d (has=%v)", state.Subscribers, state.HasSubscribers)
	}

	if _, err := topicMgr.Publish("orders", models.Message{ID: "m1", Payload: json.RawMessage(`{"n": 1}`)}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	frame := readFrameOfType(t, ws, "message")
	if frame.Topic != "orders" || frame.Message == nil || frame.Message.ID != "m1" {
		t.Errorf("Unexpected message frame: %+v", frame)
	}
	if frame.Replay {
		t.Error("Live publish must not be marked as replay")
	}
}

func TestWebSocket_PublishGatedByActiveFlag(t *testing.T) {
	server, topicMgr := newTestStack(t, nil)
	topicMgr.CreateTopic("orders")

	ws := dialWS(t, server)
	subscribe(t, ws, "orders")

	if err := topicMgr.SetTopicActive("orders", false); err != nil {
		t.Fatalf("SetTopicActive failed: %v", err)
	}
	published, err := topicMgr.Publish("orders", models.Message{ID: "suppressed"})
	if err != nil {
		t.Fatalf("Gated publish must succeed silently: %v", err)
	}
	if published {
		t.Error("Expected published=false while inactive")
	}

	topicMgr.SetTopicActive("orders", true)
	if _, err := topicMgr.Publish("orders", models.Message{ID: "marker"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// The first delivered message must be the marker: the suppressed publish
	// never reached the topic.
	frame := readFrameOfType(t, ws, "message")
	if frame.Message == nil || frame.Message.ID != "marker" {
		t.Errorf("Expected marker as first delivery, got %+v", frame.Message)
	}

	topic, _ := topicMgr.GetTopic("orders")
	if topic.GetMessageCount() != 1 {
		t.Errorf("Expected 1 message on topic, got %d", topic.GetMessageCount())
	}
}

func TestWebSocket_ClientPublishFrame(t *testing.T) {
	server, topicMgr := newTestStack(t, nil)
	topicMgr.CreateTopic("orders")

	ws := dialWS(t, server)
	subscribe(t, ws, "orders")

	sendFrame(t, ws, models.WSClientMsg{
		Type:      MsgTypePublish,
		Topic:     "orders",
		Message:   &models.Message{ID: "m1", Payload: json.RawMessage(`{"n": 1}`)},
		RequestID: "pub-1",
	})

	frame := readFrameOfType(t, ws, "message")
	if frame.Message == nil || frame.Message.ID != "m1" {
		t.Errorf("Expected published message delivered back, got %+v", frame.Message)
	}
}

func TestWebSocket_UnsubscribeDropsPeer(t *testing.T) {
	server, topicMgr := newTestStack(t, nil)
	topicMgr.CreateTopic("orders")

	ws := dialWS(t, server)
	subscribe(t, ws, "orders")

	sendFrame(t, ws, models.WSClientMsg{Type: MsgTypeUnsubscribe, Topic: "orders", RequestID: "unsub-1"})
	readFrameOfType(t, ws, MsgTypeAck)

	state, err := topicMgr.TopicState("orders")
	if err != nil {
		t.Fatalf("TopicState failed: %v", err)
	}
	if state.Subscribers != 0 || state.HasSubscribers {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", state.Subscribers)
	}
}

func TestWebSocket_DisconnectRefreshesPublisherCount(t *testing.T) {
	server, topicMgr := newTestStack(t, nil)
	topicMgr.CreateTopic("orders")

	ws := dialWS(t, server)
	subscribe(t, ws, "orders")
	ws.Close()

	// Connection cleanup runs when the server's reader observes the close.
	deadline := time.Now().Add(5 * time.Second)
	for {
		state, err := topicMgr.TopicState("orders")
		if err != nil {
			t.Fatalf("TopicState failed: %v", err)
		}
		if state.Subscribers == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Subscriber count still %d after disconnect", state.Subscribers)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocket_LatchReplaysToLateSubscriber(t *testing.T) {
	cfg := config.NewConfig()
	cfg.DefaultLatch = true
	server, topicMgr := newTestStack(t, cfg)
	topicMgr.CreateTopic("status")

	// Retained before any peer connects.
	if _, err := topicMgr.Publish("status", models.Message{ID: "retained", Payload: json.RawMessage(`{"ok": true}`)}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	ws := dialWS(t, server)
	subscribe(t, ws, "status")

	frame := readFrameOfType(t, ws, "message")
	if frame.Message == nil || frame.Message.ID != "retained" {
		t.Errorf("Expected latched replay of retained message, got %+v", frame.Message)
	}
	if !frame.Replay {
		t.Error("Latched delivery must be marked as replay")
	}
}

func TestWebSocket_LastNReplay(t *testing.T) {
	server, topicMgr := newTestStack(t, nil)
	topicMgr.CreateTopic("orders")

	for _, id := range []string{"m1", "m2", "m3"} {
		if _, err := topicMgr.Publish("orders", models.Message{ID: id}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	ws := dialWS(t, server)
	sendFrame(t, ws, models.WSClientMsg{Type: MsgTypeSubscribe, Topic: "orders", LastN: 2, RequestID: "sub-1"})

	first := readFrameOfType(t, ws, "message")
	second := readFrameOfType(t, ws, "message")
	if first.Message.ID != "m2" || second.Message.ID != "m3" {
		t.Errorf("Expected replay of m2, m3; got %s, %s", first.Message.ID, second.Message.ID)
	}
	if !first.Replay || !second.Replay {
		t.Error("History frames must be marked as replay")
	}
}

func TestWebSocket_ErrorFrames(t *testing.T) {
	server, topicMgr := newTestStack(t, nil)
	topicMgr.CreateTopic("orders")

	ws := dialWS(t, server)

	sendFrame(t, ws, models.WSClientMsg{Type: MsgTypeSubscribe, Topic: "missing"})
	frame := readFrameOfType(t, ws, MsgTypeError)
	if frame.Error == nil || frame.Error.Code != "TOPIC_NOT_FOUND" {
		t.Errorf("Expected TOPIC_NOT_FOUND, got %+v", frame.Error)
	}

	sendFrame(t, ws, models.WSClientMsg{Type: MsgTypeUnsubscribe, Topic: "orders"})
	frame = readFrameOfType(t, ws, MsgTypeError)
	if frame.Error == nil || frame.Error.Code != "NOT_SUBSCRIBED" {
		t.Errorf("Expected NOT_SUBSCRIBED, got %+v", frame.Error)
	}

	sendFrame(t, ws, models.WSClientMsg{Type: MsgTypePublish, Topic: "orders"})
	frame = readFrameOfType(t, ws, MsgTypeError)
	if frame.Error == nil || frame.Error.Code != "MISSING_MESSAGE" {
		t.Errorf("Expected MISSING_MESSAGE, got %+v", frame.Error)
	}

	sendFrame(t, ws, models.WSClientMsg{Type: "bogus"})
	frame = readFrameOfType(t, ws, MsgTypeError)
	if frame.Error == nil || frame.Error.Code != "UNKNOWN_TYPE" {
		t.Errorf("Expected UNKNOWN_TYPE, got %+v", frame.Error)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	server, _ := newTestStack(t, nil)
	ws := dialWS(t, server)

	sendFrame(t, ws, models.WSClientMsg{Type: MsgTypePing, RequestID: "ping-1"})
	frame := readFrameOfType(t, ws, MsgTypePong)
	if frame.RequestID != "ping-1" {
		t.Errorf("Expected pong for request 'ping-1', got '%s'", frame.RequestID)
	}
}
