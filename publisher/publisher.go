// Package publisher provides GatedPublisher, a thin decorator around a
// pub/sub transport handle. It adds two things to the transport's publish
// surface: an active flag that gates publishing, and a cached subscriber
// count refreshed on every peer connect/disconnect with ordered
// change-callback notification.
package publisher

import (
	"sync"

	"github.com/tanmay-xvx/gated-pubsub/internals/models"
)

// Transport is the contract required from the underlying messaging transport.
// Publish serializes and delivers the message to current subscribers and may
// fail with a transport-level error, which propagates unmodified through the
// wrapper. NumConnections returns the current count of connected subscribers.
type Transport interface {
	Publish(msg models.Message) error
	NumConnections() int
}

// PeerNotifier is the optional transport capability of reporting peer events.
// The registered handler must be invoked exactly once per peer connect and
// once per peer disconnect.
type PeerNotifier interface {
	NotifyPeerEvents(h func())
}

// ChangeCallback is invoked with the publisher itself whenever the cached
// subscriber count changes.
type ChangeCallback func(*GatedPublisher)

// GatedPublisher wraps a Transport. Publishing is forwarded unchanged while
// the publisher is active and is a silent no-op while it is not. The cached
// subscriber count reflects the transport's connection count as of the last
// peer event, not in real time between events.
//
// The transport here fires peer events from its own goroutines, so active,
// the cached count and the callback list sit behind a mutex. Callbacks run
// outside the mutex, in registration order, and may call back into the
// publisher. Callback panics are not contained; they propagate to whatever
// fired the peer event.
type GatedPublisher struct {
	transport Transport

	mu              sync.Mutex
	active          bool
	subscriberCount int
	changeCallbacks []ChangeCallback
}

// New wraps the given transport handle. The publisher starts active, and the
// subscriber count is initialized from the transport. If the transport can
// report peer events, the publisher registers its refresh handler so the
// count stays current.
func New(t Transport) *GatedPublisher {
	p := &GatedPublisher{
		transport: t,
		active:    true,
	}
	p.subscriberCount = t.NumConnections()

	if n, ok := t.(PeerNotifier); ok {
		n.NotifyPeerEvents(p.onPeerEvent)
	}
	return p
}

// Publish forwards the message to the transport if the publisher is active.
// While inactive it returns nil immediately without touching the transport.
// Transport errors while active propagate unmodified.
func (p *GatedPublisher) Publish(msg models.Message) error {
	_, err := p.TryPublish(msg)
	return err
}

// TryPublish is Publish plus a report of whether this call forwarded the
// message. The gate is read once, so the report matches what the call
// actually did even when SetActive runs concurrently.
func (p *GatedPublisher) TryPublish(msg models.Message) (bool, error) {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if !active {
		return false, nil
	}
	return true, p.transport.Publish(msg)
}

// SetActive sets the gate. Takes effect on the next Publish call; the flag
// may be toggled freely, any time, any number of times.
func (p *GatedPublisher) SetActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

// Active reports whether publishing is currently forwarded.
func (p *GatedPublisher) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// RegisterChangeCallback appends a callback invoked on every subscriber-count
// refresh, in registration order, with this publisher as sole argument.
// There is no deduplication and no removal.
func (p *GatedPublisher) RegisterChangeCallback(cb ChangeCallback) {
	if cb == nil {
		return
	}
	p.mu.Lock()
	p.changeCallbacks = append(p.changeCallbacks, cb)
	p.mu.Unlock()
}

// SubscriberCount returns the cached subscriber count as of the last peer event.
func (p *GatedPublisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscriberCount
}

// HasAnySubscribers returns true if at least one subscriber was connected as
// of the last peer event.
func (p *GatedPublisher) HasAnySubscribers() bool {
	return p.SubscriberCount() > 0
}

// onPeerEvent re-queries the transport's connection count and invokes every
// registered change callback. Runs on the transport's peer-event goroutine.
func (p *GatedPublisher) onPeerEvent() {
	count := p.transport.NumConnections()

	p.mu.Lock()
	p.subscriberCount = count
	callbacks := make([]ChangeCallback, len(p.changeCallbacks))
	copy(callbacks, p.changeCallbacks)
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(p)
	}
}
