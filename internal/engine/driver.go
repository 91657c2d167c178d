package engine

import (
	"context"
	"fmt"

	"github.com/desecnd/gnomes-rat-killers/internal/clock"
	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
	"github.com/desecnd/gnomes-rat-killers/internal/queue"
	"github.com/desecnd/gnomes-rat-killers/internal/tally"
	"github.com/desecnd/gnomes-rat-killers/transport"
)

// Process bundles the per-rank objects the Driver coordinates: the clock,
// the single resource queue this rank tracks, the tally for its own
// in-flight request, and the handler/FSM pair built on top of them.
type Process struct {
	Role    Role
	Clock   *clock.Clock
	Queue   *queue.ResourceQueue
	Tally   *tally.AckTally
	Handler *MessageHandler
	FSM     *LifecycleFSM
}

// NewProcess wires up one rank's engine objects. initialAvailable seeds the
// believed capacity of the resource this rank consumes.
func NewProcess(role Role, initialAvailable int, dwell DwellConfig, log netlog.Logger) *Process {
	c := clock.New()
	q := queue.New(initialAvailable)
	t := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, t, log)
	f := NewLifecycleFSM(role, c, q, t, dwell, nil, log)
	return &Process{Role: role, Clock: c, Queue: q, Tally: t, Handler: h, FSM: f}
}

// Driver runs the infinite FSM-step / probe-and-dispatch loop described by
// the spec: each iteration advances the FSM by one tick, then non-
// blockingly probes the transport for one inbound message and dispatches
// it to the handler if present. Protocol-invariant violations surface as
// panics from the queue/tally/handler layers; Run recovers them, logs one
// attributable line and returns the violation as an error carrying the
// rank, which the caller treats as fatal.
type Driver struct {
	proc      *Process
	transport transport.Transport
	log       netlog.Logger
}

// NewDriver builds a Driver for proc communicating over tr.
func NewDriver(proc *Process, tr transport.Transport, log netlog.Logger) *Driver {
	if log == nil {
		log = netlog.NoOp{}
	}
	return &Driver{proc: proc, transport: tr, log: log}
}

// Run loops until ctx is cancelled or a fatal error/violation occurs.
func (d *Driver) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Printf("[%s%d] FATAL protocol violation: %v", d.proc.Role.Class, d.proc.Role.Rank, r)
			err = fmt.Errorf("rank %d: protocol violation: %v", d.proc.Role.Rank, r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.proc.FSM.Step(ctx, d.transport); err != nil {
			return err
		}

		present, err := d.transport.Probe(ctx)
		if err != nil {
			return err
		}
		if !present {
			continue
		}

		payload, sender, err := d.transport.Recv(ctx)
		if err != nil {
			return err
		}

		msg := Message{
			Kind:     Kind(payload.Kind),
			Resource: Resource(payload.Resource),
			TS:       payload.TS,
			Sender:   sender,
		}
		if err := d.proc.Handler.Handle(ctx, d.transport, msg); err != nil {
			return err
		}
	}
}
