// Package transport defines the point-to-point, reliable, per-pair-FIFO
// messaging contract the engine drives. It deliberately says nothing about
// bytes on a wire or process launch: those are out of scope for the
// coordination engine and left to the concrete implementations under
// transport/localnet and transport/grpcnet.
package transport

import "context"

// Payload is the three-signed-integer message the spec's MPI-derived
// contract carries: (kind, resource, ts). The sender rank is not part of
// the payload; it is attached by the transport on delivery.
type Payload struct {
	Kind     int32
	Resource int32
	TS       uint64
}

// Transport is the contract the engine's Driver probes, receives from and
// sends on. Implementations must deliver messages from a given sender to a
// given receiver in the order they were sent (per-pair FIFO); the engine's
// safety argument depends on nothing weaker.
type Transport interface {
	// Self returns this process's own rank.
	Self() int

	// Probe reports, without blocking, whether at least one message is
	// available to Recv.
	Probe(ctx context.Context) (bool, error)

	// Recv returns the next available message and its sender's rank. It
	// is only ever called right after a successful Probe, so it must not
	// block for long; implementations may still accept a context for
	// cancellation during shutdown.
	Recv(ctx context.Context) (Payload, int, error)

	// Send delivers p to dest. Errors are fatal to the calling process;
	// the protocol assumes a reliable transport.
	Send(ctx context.Context, dest int, p Payload) error

	// Close releases any resources held by the transport.
	Close() error
}
