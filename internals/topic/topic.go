// Package topic provides the in-memory transport topics the gated publisher wraps.
package topic

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanmay-xvx/gated-pubsub/internals/models"
	"github.com/tanmay-xvx/gated-pubsub/internals/ringbuffer"
	"github.com/tanmay-xvx/gated-pubsub/internals/subscriber"
)

const (
	// PolicyDropOldest drops the oldest queued frame when a peer buffer is full
	PolicyDropOldest = "DROP_OLDEST"
	// PolicyDisconnect disconnects the peer when its buffer is full
	PolicyDisconnect = "DISCONNECT"
)

// ErrTopicClosed is returned when publishing to a closed topic.
var ErrTopicClosed = errors.New("topic closed")

// Topic represents a named channel for publishing and subscribing to messages.
// It manages peers, retains recent messages in a ring buffer, and notifies
// registered peer-event handlers once per peer connect and once per peer
// disconnect.
type Topic struct {
	Name  string
	latch bool

	subsMu sync.RWMutex
	subs   map[string]*subscriber.Subscriber
	closed bool

	ring     *ringbuffer.RingBuffer
	messages uint64 // atomic counter for total messages published
	dropped  uint64 // atomic counter for dropped messages

	peerMu       sync.Mutex
	peerHandlers []func()
}

// NewTopic creates a new topic with the specified name and retained-message
// capacity. When latch is true, the most recent retained message is delivered
// to every newly connecting peer.
func NewTopic(name string, ringCap int, latch bool) *Topic {
	if ringCap <= 0 {
		ringCap = 1000 // Default retained-message capacity
	}

	return &Topic{
		Name:  name,
		latch: latch,
		subs:  make(map[string]*subscriber.Subscriber),
		ring:  ringbuffer.NewRingBuffer(ringCap),
	}
}

// NotifyPeerEvents registers a handler invoked once per peer connect and once
// per peer disconnect on this topic. Handlers run on the goroutine performing
// the connect/disconnect, outside the topic's peer lock, so they may call back
// into the topic. Handler panics are not contained.
func (t *Topic) NotifyPeerEvents(h func()) {
	if h == nil {
		return
	}
	t.peerMu.Lock()
	t.peerHandlers = append(t.peerHandlers, h)
	t.peerMu.Unlock()
}

// firePeerEvent invokes every registered peer-event handler, n times.
func (t *Topic) firePeerEvent(n int) {
	if n <= 0 {
		return
	}

	t.peerMu.Lock()
	handlers := make([]func(), len(t.peerHandlers))
	copy(handlers, t.peerHandlers)
	t.peerMu.Unlock()

	for i := 0; i < n; i++ {
		for _, h := range handlers {
			h()
		}
	}
}

// AddSubscriber connects a peer to the topic. If a peer with the same ClientID
// already exists, it is closed and replaced. On a latched topic, the most
// recent retained message is immediately queued for the new peer.
func (t *Topic) AddSubscriber(s *subscriber.Subscriber) {
	if s == nil {
		return
	}

	t.subsMu.Lock()
	if existing, exists := t.subs[s.ClientID]; exists {
		existing.Close()
	}
	t.subs[s.ClientID] = s
	t.subsMu.Unlock()

	if t.latch {
		if last, ok := t.ring.Last(); ok {
			s.TrySend(models.ServerMsg{
				Type:    "message",
				Topic:   t.Name,
				Message: &last,
				Replay:  true,
				Ts:      time.Now(),
			})
		}
	}

	t.firePeerEvent(1)
}

// RemoveSubscriber disconnects a peer from the topic by client ID.
// Returns true if the peer was found and removed.
func (t *Topic) RemoveSubscriber(clientID string) bool {
	t.subsMu.Lock()
	sub, exists := t.subs[clientID]
	if exists {
		sub.Close()
		delete(t.subs, clientID)
	}
	t.subsMu.Unlock()

	if exists {
		t.firePeerEvent(1)
	}
	return exists
}

// Publish delivers a message to every connected peer and retains it in the
// ring buffer. The policy parameter selects the peer buffer overflow behavior.
// Returns the number of frames delivered and dropped.
func (t *Topic) Publish(msg models.Message, policy string) (delivered int, dropped int, err error) {
	t.subsMu.RLock()
	if t.closed {
		t.subsMu.RUnlock()
		return 0, 0, ErrTopicClosed
	}
	subscribers := make([]*subscriber.Subscriber, 0, len(t.subs))
	for _, sub := range t.subs {
		if sub.IsActive() {
			subscribers = append(subscribers, sub)
		}
	}
	t.subsMu.RUnlock()

	t.ring.Push(msg)
	atomic.AddUint64(&t.messages, 1)

	frame := models.ServerMsg{
		Type:    "message",
		Topic:   t.Name,
		Message: &msg,
		Ts:      time.Now(),
	}

	for _, sub := range subscribers {
		if t.deliver(sub, frame, policy) {
			delivered++
		} else {
			dropped++
		}
	}

	return delivered, dropped, nil
}

// deliver attempts to queue a frame for a single peer.
// Returns true if the frame was queued, false if it was dropped.
func (t *Topic) deliver(sub *subscriber.Subscriber, frame models.ServerMsg, policy string) bool {
	if sub.TrySend(frame) {
		return true
	}

	// Peer buffer is full, apply the overflow policy.
	switch policy {
	case PolicyDisconnect:
		return t.disconnectPeer(sub)
	default: // PolicyDropOldest
		return t.dropOldestAndSend(sub, frame)
	}
}

// dropOldestAndSend implements DROP_OLDEST: drain one queued frame from the
// peer buffer, then retry the new frame once.
func (t *Topic) dropOldestAndSend(sub *subscriber.Subscriber, frame models.ServerMsg) bool {
	atomic.AddUint64(&t.dropped, 1)

	select {
	case <-sub.Send:
		if sub.TrySend(frame) {
			return true
		}
		return false
	default:
		return false
	}
}

// disconnectPeer implements DISCONNECT: notify the peer of the overflow if
// possible, then close and remove it.
func (t *Topic) disconnectPeer(sub *subscriber.Subscriber) bool {
	overflow := models.NewServerError("", "BUFFER_OVERFLOW", "peer buffer overflow, disconnecting")
	sub.TrySend(*overflow)

	atomic.AddUint64(&t.dropped, 1)
	t.RemoveSubscriber(sub.ClientID)
	return false
}

// ListSubscriberIDs returns the client IDs of all active peers.
func (t *Topic) ListSubscriberIDs() []string {
	t.subsMu.RLock()
	defer t.subsMu.RUnlock()

	ids := make([]string, 0, len(t.subs))
	for clientID, sub := range t.subs {
		if sub.IsActive() {
			ids = append(ids, clientID)
		}
	}
	return ids
}

// GetSubscriber returns a connected peer by client ID.
func (t *Topic) GetSubscriber(clientID string) (*subscriber.Subscriber, bool) {
	t.subsMu.RLock()
	defer t.subsMu.RUnlock()

	sub, exists := t.subs[clientID]
	return sub, exists
}

// NumConnections returns the current number of active peers.
func (t *Topic) NumConnections() int {
	t.subsMu.RLock()
	defer t.subsMu.RUnlock()

	count := 0
	for _, sub := range t.subs {
		if sub.IsActive() {
			count++
		}
	}
	return count
}

// Latched reports whether the topic replays its last retained message to new peers.
func (t *Topic) Latched() bool {
	return t.latch
}

// GetMessageCount returns the total number of messages published to this topic.
func (t *Topic) GetMessageCount() uint64 {
	return atomic.LoadUint64(&t.messages)
}

// GetDroppedCount returns the total number of frames dropped due to peer buffer overflow.
func (t *Topic) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&t.dropped)
}

// GetLastN returns the last n retained messages in chronological order.
func (t *Topic) GetLastN(n int) []models.Message {
	return t.ring.LastN(n)
}

// GetRingBufferSize returns the retained-message capacity.
func (t *Topic) GetRingBufferSize() int {
	return t.ring.Capacity()
}

// Close disconnects all peers and marks the topic closed. Further publishes
// fail with ErrTopicClosed. One peer-disconnect event fires per removed peer.
func (t *Topic) Close() {
	t.subsMu.Lock()
	removed := len(t.subs)
	for _, sub := range t.subs {
		sub.Close()
	}
	t.subs = make(map[string]*subscriber.Subscriber)
	t.closed = true
	t.subsMu.Unlock()

	t.firePeerEvent(removed)
}
