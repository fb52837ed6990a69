// Package ringbuffer provides a thread-safe circular buffer that retains
// recently published messages for latched and last_n replay.
package ringbuffer

import (
	"sync"

	"github.com/tanmay-xvx/gated-pubsub/internals/models"
)

// RingBuffer retains the most recent messages published to a topic.
// When full, the oldest message is overwritten.
type RingBuffer struct {
	buf  []models.Message
	cap  int
	head int
	size int
	mu   sync.RWMutex
}

// NewRingBuffer creates a retained-message buffer with the specified capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 100 // Default capacity
	}
	return &RingBuffer{
		buf: make([]models.Message, capacity),
		cap: capacity,
	}
}

// Push retains a new message, overwriting the oldest one when full.
func (r *RingBuffer) Push(m models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.head] = m
	r.head = (r.head + 1) % r.cap
	if r.size < r.cap {
		r.size++
	}
}

// Last returns the most recently retained message. The boolean is false when
// nothing has been retained yet. This is what latched topics send to a peer
// immediately upon subscription.
func (r *RingBuffer) Last() (models.Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return models.Message{}, false
	}
	return r.buf[(r.head-1+r.cap)%r.cap], true
}

// LastN returns up to n retained messages in chronological order (oldest to
// newest). If fewer than n messages are retained, all of them are returned.
func (r *RingBuffer) LastN(n int) []models.Message {
	if n <= 0 {
		return []models.Message{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := n
	if count > r.size {
		count = r.size
	}
	if count == 0 {
		return []models.Message{}
	}

	result := make([]models.Message, count)
	start := (r.head - count + r.cap) % r.cap
	for i := 0; i < count; i++ {
		result[i] = r.buf[(start+i)%r.cap]
	}
	return result
}

// Size returns the current number of retained messages.
func (r *RingBuffer) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of messages the buffer retains.
func (r *RingBuffer) Capacity() int {
	return r.cap
}
