// Package clock implements the scalar Lamport logical clock shared by the
// queue, tally and engine packages.
package clock

import "sync"

// Clock is a monotonically advancing Lamport timestamp. It is safe for
// concurrent use, though the engine only ever touches it from its single
// driver goroutine; the lock exists so debug/introspection code (and the
// occasional test) can read Now() from another goroutine without a race.
type Clock struct {
	mu  sync.Mutex
	val uint64
}

// New returns a Clock initialised to 0.
func New() *Clock {
	return &Clock{}
}

// Now returns the current value of L without advancing it.
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// OnSend returns the timestamp to stamp on an outgoing message (or batch of
// messages sharing one timestamp) and then advances L by one. Callers that
// broadcast to several peers must call OnSend exactly once per batch and
// stamp every outgoing envelope with the returned value, so that the
// sender's own view of the timestamp matches what it tells its peers.
func (c *Clock) OnSend() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.val
	c.val++
	return ts
}

// OnRecv applies the Lamport receive rule for an incoming message stamped
// msgTS: L := max(L, msgTS) + 1.
func (c *Clock) OnRecv(msgTS uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msgTS > c.val {
		c.val = msgTS
	}
	c.val++
}
