package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/desecnd/gnomes-rat-killers/internal/clock"
	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
	"github.com/desecnd/gnomes-rat-killers/internal/queue"
	"github.com/desecnd/gnomes-rat-killers/internal/tally"
	"github.com/desecnd/gnomes-rat-killers/transport"
)

// State is one of the four lifecycle states.
type State int

const (
	Sleeping State = iota
	Resting
	Requesting
	Critical
)

func (s State) String() string {
	switch s {
	case Sleeping:
		return "SLEEPING"
	case Resting:
		return "RESTING"
	case Requesting:
		return "REQUESTING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Dwell picks a per-state dwell duration, optionally randomised within
// [Min, Max]. Equal bounds give a fixed dwell.
type Dwell struct {
	Min time.Duration
	Max time.Duration
}

func (d Dwell) pick(rng *rand.Rand) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	span := int64(d.Max - d.Min)
	return d.Min + time.Duration(rng.Int63n(span+1))
}

// DwellConfig supplies the per-state dwell bounds. SLEEPING is the only
// state the Driver actually sleeps for; the others gate on dwell only to
// decide when to act, since the Driver never blocks outside SLEEPING.
type DwellConfig struct {
	Sleeping   Dwell
	Resting    Dwell
	Requesting Dwell
	Critical   Dwell
}

// LifecycleFSM drives one process's own request/consume/produce cycle. It
// owns no transport state beyond what it needs to send; everything it
// observes about peers comes through the MessageHandler mutating the same
// Queue/Tally this FSM reads.
type LifecycleFSM struct {
	role  Role
	clock *clock.Clock
	queue *queue.ResourceQueue
	tally *tally.AckTally
	log   netlog.Logger
	dwell DwellConfig
	rng   *rand.Rand

	state          State
	lastTransition time.Time
	dwellFor       time.Duration

	events chan CSEvent
}

// CSEvent reports one CRITICAL-section entry or exit, for tests that need to
// observe the mutual-exclusion invariant from outside the FSM rather than
// polling State().
type CSEvent struct {
	Resource Resource
	Rank     int
	Entering bool
}

// WatchCriticalSection registers ch to receive a CSEvent on every CRITICAL
// entry and exit. Sends are non-blocking: a full or nil channel simply drops
// the event rather than stalling the FSM.
func (f *LifecycleFSM) WatchCriticalSection(ch chan CSEvent) {
	f.events = ch
}

func (f *LifecycleFSM) emitCS(entering bool) {
	if f.events == nil {
		return
	}
	select {
	case f.events <- CSEvent{Resource: f.role.Consumes, Rank: f.role.Rank, Entering: entering}:
	default:
	}
}

// NewLifecycleFSM builds an FSM in the initial SLEEPING state.
func NewLifecycleFSM(role Role, c *clock.Clock, q *queue.ResourceQueue, t *tally.AckTally, dwell DwellConfig, rng *rand.Rand, log netlog.Logger) *LifecycleFSM {
	if log == nil {
		log = netlog.NoOp{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	f := &LifecycleFSM{
		role:  role,
		clock: c,
		queue: q,
		tally: t,
		log:   log,
		dwell: dwell,
		rng:   rng,
		state: Sleeping,
	}
	f.enter(Sleeping)
	return f
}

// State returns the current lifecycle state.
func (f *LifecycleFSM) State() State {
	return f.state
}

func (f *LifecycleFSM) enter(s State) {
	if f.state == Critical && s != Critical {
		f.emitCS(false)
	}
	f.state = s
	f.lastTransition = time.Now()
	if s == Critical {
		f.emitCS(true)
	}
	switch s {
	case Sleeping:
		f.dwellFor = f.dwell.Sleeping.pick(f.rng)
	case Resting:
		f.dwellFor = f.dwell.Resting.pick(f.rng)
	case Requesting:
		f.dwellFor = f.dwell.Requesting.pick(f.rng)
	case Critical:
		f.dwellFor = f.dwell.Critical.pick(f.rng)
	}
	f.log.Printf("[%s%d] -> %s", f.role.Class, f.role.Rank, s)
}

func (f *LifecycleFSM) elapsed() bool {
	return time.Since(f.lastTransition) >= f.dwellFor
}

// Step advances the FSM by one tick. It may block for the remainder of the
// SLEEPING dwell (the coarsest-grained state, per the spec); every other
// transition is checked without blocking. It may send messages over tr.
func (f *LifecycleFSM) Step(ctx context.Context, tr transport.Transport) error {
	switch f.state {
	case Sleeping:
		if remaining := f.dwellFor - time.Since(f.lastTransition); remaining > 0 {
			select {
			case <-time.After(remaining):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		f.enter(Resting)

	case Resting:
		if f.elapsed() {
			return f.beginRequesting(ctx, tr)
		}

	case Requesting:
		if f.tally.Complete() {
			f.enter(Critical)
		}

	case Critical:
		if f.elapsed() {
			return f.finishCritical(ctx, tr)
		}
	}
	return nil
}

// beginRequesting implements RESTING -> REQUESTING: the process inserts its
// own entry, self-grants if the window already reaches it, then broadcasts
// REQUEST to every same-class peer with one shared timestamp.
func (f *LifecycleFSM) beginRequesting(ctx context.Context, tr transport.Transport) error {
	ts := f.clock.OnSend()
	if f.queue.AddRequest(f.role.Rank, ts) {
		f.queue.MarkAckSent(f.role.Rank)
		f.tally.RecordSelf()
	}

	for _, peer := range f.role.SameClass {
		if err := tr.Send(ctx, peer, transport.Payload{
			Kind:     int32(KindRequest),
			Resource: int32(f.role.Consumes),
			TS:       ts,
		}); err != nil {
			return err
		}
	}

	f.log.Printf("[%s%d] REQUEST(%s,ts=%d) broadcast to %v", f.role.Class, f.role.Rank, f.role.Consumes, ts, f.role.SameClass)
	f.enter(Requesting)
	return nil
}

// finishCritical implements CRITICAL -> SLEEPING: reset the tally, consume
// the local entry, broadcast CONSUME to same-class peers and PRODUCE to the
// other class, each broadcast advancing the clock once.
func (f *LifecycleFSM) finishCritical(ctx context.Context, tr transport.Transport) error {
	f.tally.Reset()
	f.queue.Consume(f.role.Rank)

	consumeTS := f.clock.OnSend()
	for _, peer := range f.role.SameClass {
		if err := tr.Send(ctx, peer, transport.Payload{
			Kind:     int32(KindConsume),
			Resource: int32(f.role.Consumes),
			TS:       consumeTS,
		}); err != nil {
			return err
		}
	}
	f.log.Printf("[%s%d] CONSUME(%s) broadcast to %v", f.role.Class, f.role.Rank, f.role.Consumes, f.role.SameClass)

	produceTS := f.clock.OnSend()
	for _, peer := range f.role.OtherClass {
		if err := tr.Send(ctx, peer, transport.Payload{
			Kind:     int32(KindProduce),
			Resource: int32(f.role.Produces),
			TS:       produceTS,
		}); err != nil {
			return err
		}
	}
	f.log.Printf("[%s%d] PRODUCE(%s) broadcast to %v", f.role.Class, f.role.Rank, f.role.Produces, f.role.OtherClass)

	f.enter(Sleeping)
	return nil
}
