package workspace

import "sync"

// Broadcaster pings subscribers whenever observable workspace state changes.
// Listeners receive an empty struct and should take a fresh Snapshot.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
	closed    bool
}

// NewBroadcaster creates a Broadcaster with no listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives a ping after each change.
// Pings coalesce: a slow listener sees at most one pending ping.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[ch]; !ok {
		return
	}
	delete(b.listeners, ch)
	close(ch)
}

// Broadcast pings every listener without blocking.
func (b *Broadcaster) Broadcast() {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.listeners {
		select {
		case ch <- struct{}{}:
		default:
			// listener already has a pending ping
		}
	}
}

// Close closes every listener channel. Later subscribers get a closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.listeners {
		close(ch)
	}
	b.listeners = nil
}
