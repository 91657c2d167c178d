package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/desecnd/gnomes-rat-killers/internal/clock"
	"github.com/desecnd/gnomes-rat-killers/internal/queue"
	"github.com/desecnd/gnomes-rat-killers/internal/tally"
)

func zeroDwell() DwellConfig {
	return DwellConfig{
		Sleeping:   Dwell{Min: 0, Max: 0},
		Resting:    Dwell{Min: 0, Max: 0},
		Requesting: Dwell{Min: 0, Max: 0},
		Critical:   Dwell{Min: 0, Max: 0},
	}
}

func newTestFSM(role Role, available int) (*LifecycleFSM, *queue.ResourceQueue, *tally.AckTally) {
	c := clock.New()
	q := queue.New(available)
	tl := tally.New(role.SameClass)
	f := NewLifecycleFSM(role, c, q, tl, zeroDwell(), rand.New(rand.NewSource(1)), nil)
	return f, q, tl
}

func TestFSMSleepingAdvancesToRestingWithoutBlocking(t *testing.T) {
	role := producerRole(0, []int{1}, []int{2})
	f, _, _ := newTestFSM(role, 1)
	tr := newFakeTransport(0)

	if f.State() != Sleeping {
		t.Fatalf("initial state = %s, want SLEEPING", f.State())
	}
	if err := f.Step(context.Background(), tr); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Resting {
		t.Fatalf("state = %s, want RESTING", f.State())
	}
}

func TestFSMBeginRequestingBroadcastsAndSelfGrants(t *testing.T) {
	role := producerRole(0, []int{1, 2}, []int{3})
	f, q, tl := newTestFSM(role, 5) // plenty of capacity: self-grant fires immediately
	tr := newFakeTransport(0)

	// drive SLEEPING -> RESTING -> REQUESTING
	if err := f.Step(context.Background(), tr); err != nil {
		t.Fatalf("Step 1: %v", err)
	}
	if err := f.Step(context.Background(), tr); err != nil {
		t.Fatalf("Step 2: %v", err)
	}
	if f.State() != Requesting {
		t.Fatalf("state = %s, want REQUESTING", f.State())
	}

	if len(tr.Sent) != 2 {
		t.Fatalf("expected REQUEST broadcast to both same-class peers, got %d sends", len(tr.Sent))
	}
	dests := map[int]bool{}
	for _, m := range tr.Sent {
		dests[m.Dest] = true
		if Kind(m.Payload.Kind) != KindRequest {
			t.Fatalf("expected KindRequest, got %v", m.Payload.Kind)
		}
		if m.Payload.TS != tr.Sent[0].Payload.TS {
			t.Fatalf("broadcast messages must share one timestamp")
		}
	}
	if !dests[1] || !dests[2] {
		t.Fatalf("expected sends to ranks 1 and 2, got %v", dests)
	}

	if q.Len() != 1 {
		t.Fatalf("own entry should be queued, Len() = %d", q.Len())
	}
	if !q.AckSent(0) {
		t.Fatalf("ample capacity should self-grant the rank's own entry immediately")
	}
	if tl.Complete() {
		t.Fatalf("tally should not be complete yet: same-class peers have not ACK'd")
	}
}

func TestFSMRequestingWaitsForTallyCompletion(t *testing.T) {
	role := producerRole(0, []int{1}, nil)
	f, _, tl := newTestFSM(role, 0) // no capacity: self-grant does not fire
	tr := newFakeTransport(0)

	if err := f.Step(context.Background(), tr); err != nil { // -> RESTING
		t.Fatalf("Step: %v", err)
	}
	if err := f.Step(context.Background(), tr); err != nil { // -> REQUESTING
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Requesting {
		t.Fatalf("state = %s, want REQUESTING", f.State())
	}

	if err := f.Step(context.Background(), tr); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Requesting {
		t.Fatalf("should remain REQUESTING while tally is incomplete, got %s", f.State())
	}

	tl.Record(1)
	tl.RecordSelf()
	if !tl.Complete() {
		t.Fatalf("setup: tally should now be complete")
	}
	if err := f.Step(context.Background(), tr); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Critical {
		t.Fatalf("state = %s, want CRITICAL once tally completes", f.State())
	}
}

func TestFSMFinishCriticalBroadcastsConsumeAndProduce(t *testing.T) {
	role := producerRole(0, []int{1}, []int{2, 3})
	f, q, tl := newTestFSM(role, 5)
	tr := newFakeTransport(0)

	// Drive all the way to CRITICAL.
	for f.State() != Critical {
		if err := f.Step(context.Background(), tr); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if f.State() == Requesting && !tl.Complete() {
			tl.Record(1) // peer 1's ACK
			if !tl.Complete() {
				t.Fatalf("tally still incomplete after peer 1's ACK")
			}
		}
	}
	tr.Sent = nil // discard the REQUEST broadcast, only care about finishCritical's sends

	if err := f.Step(context.Background(), tr); err != nil { // CRITICAL -> SLEEPING
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Sleeping {
		t.Fatalf("state = %s, want SLEEPING after finishing the critical section", f.State())
	}
	if q.Len() != 0 {
		t.Fatalf("own entry should be consumed, Len() = %d", q.Len())
	}
	if tl.Complete() {
		t.Fatalf("tally should have been reset")
	}

	var consumeDests, produceDests []int
	for _, m := range tr.Sent {
		switch Kind(m.Payload.Kind) {
		case KindConsume:
			consumeDests = append(consumeDests, m.Dest)
		case KindProduce:
			produceDests = append(produceDests, m.Dest)
		default:
			t.Fatalf("unexpected message kind %v", m.Payload.Kind)
		}
	}
	if len(consumeDests) != 1 || consumeDests[0] != 1 {
		t.Fatalf("CONSUME dests = %v, want [1]", consumeDests)
	}
	if len(produceDests) != 2 {
		t.Fatalf("PRODUCE dests = %v, want both other-class peers", produceDests)
	}
}

func TestFSMCriticalWaitsOutDwell(t *testing.T) {
	role := producerRole(0, nil, nil)
	c := clock.New()
	q := queue.New(1)
	tl := tally.New(role.SameClass)
	dwell := DwellConfig{
		Sleeping:   Dwell{0, 0},
		Resting:    Dwell{0, 0},
		Requesting: Dwell{0, 0},
		Critical:   Dwell{50 * time.Millisecond, 50 * time.Millisecond},
	}
	f := NewLifecycleFSM(role, c, q, tl, dwell, rand.New(rand.NewSource(1)), nil)
	tr := newFakeTransport(0)

	if err := f.Step(context.Background(), tr); err != nil { // -> RESTING
		t.Fatalf("Step: %v", err)
	}
	if err := f.Step(context.Background(), tr); err != nil { // -> REQUESTING, self-grants (no peers)
		t.Fatalf("Step: %v", err)
	}
	if err := f.Step(context.Background(), tr); err != nil { // -> CRITICAL
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Critical {
		t.Fatalf("state = %s, want CRITICAL", f.State())
	}

	if err := f.Step(context.Background(), tr); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Critical {
		t.Fatalf("should still be CRITICAL before the dwell elapses, got %s", f.State())
	}

	time.Sleep(60 * time.Millisecond)
	if err := f.Step(context.Background(), tr); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.State() != Sleeping {
		t.Fatalf("state = %s, want SLEEPING once the critical dwell elapses", f.State())
	}
}
