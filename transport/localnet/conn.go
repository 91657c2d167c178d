package localnet

import (
	"context"
	"fmt"

	"github.com/desecnd/gnomes-rat-killers/transport"
)

// Conn implements transport.Transport for one rank against a shared Hub.
type Conn struct {
	hub  *Hub
	self int

	pending *envelope
}

// Self returns the bound rank.
func (c *Conn) Self() int {
	return c.self
}

// Probe reports whether a message is already buffered for this rank,
// without blocking and without consuming it.
func (c *Conn) Probe(ctx context.Context) (bool, error) {
	if c.pending != nil {
		return true, nil
	}

	c.hub.mu.Lock()
	inbox, ok := c.hub.inboxes[c.self]
	c.hub.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("localnet: no such rank %d", c.self)
	}

	select {
	case env, open := <-inbox:
		if !open {
			return false, fmt.Errorf("localnet: rank %d inbox closed", c.self)
		}
		c.pending = &env
		return true, nil
	default:
		return false, nil
	}
}

// Recv returns the message buffered by the most recent successful Probe.
// Calling Recv without a preceding successful Probe blocks until one
// message arrives, matching the spec's "receive-after-probe is effectively
// non-blocking" note while remaining safe to call on its own in tests.
func (c *Conn) Recv(ctx context.Context) (transport.Payload, int, error) {
	if c.pending != nil {
		env := *c.pending
		c.pending = nil
		return env.payload, env.from, nil
	}

	c.hub.mu.Lock()
	inbox, ok := c.hub.inboxes[c.self]
	c.hub.mu.Unlock()
	if !ok {
		return transport.Payload{}, 0, fmt.Errorf("localnet: no such rank %d", c.self)
	}

	select {
	case env, open := <-inbox:
		if !open {
			return transport.Payload{}, 0, fmt.Errorf("localnet: rank %d inbox closed", c.self)
		}
		return env.payload, env.from, nil
	case <-ctx.Done():
		return transport.Payload{}, 0, ctx.Err()
	}
}

// Send delivers p to dest via the shared Hub.
func (c *Conn) Send(ctx context.Context, dest int, p transport.Payload) error {
	return c.hub.send(ctx, c.self, dest, p)
}

// Close is a no-op per-connection; the Hub owns the inboxes' lifetime.
func (c *Conn) Close() error {
	return nil
}
