package engine

import (
	"context"
	"testing"

	"github.com/desecnd/gnomes-rat-killers/internal/clock"
	"github.com/desecnd/gnomes-rat-killers/internal/queue"
	"github.com/desecnd/gnomes-rat-killers/internal/tally"
)

func producerRole(self int, peers, others []int) Role {
	return Role{Rank: self, Class: ClassProducer, Consumes: ResourceSlot, Produces: ResourceArtifact, SameClass: peers, OtherClass: others}
}

func TestHandleRequestInsideWindowGrantsAck(t *testing.T) {
	role := producerRole(0, []int{1}, nil)
	c := clock.New()
	q := queue.New(1) // capacity 1, so rank 1's request lands in the window
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	if err := h.Handle(context.Background(), tr, Message{Kind: KindRequest, Resource: ResourceSlot, TS: 3, Sender: 1}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(tr.Sent) != 1 {
		t.Fatalf("expected one ACK sent, got %d", len(tr.Sent))
	}
	sent := tr.Sent[0]
	if sent.Dest != 1 || Kind(sent.Payload.Kind) != KindAck {
		t.Fatalf("unexpected ACK: %+v", sent)
	}
	if !q.AckSent(1) {
		t.Fatalf("ack_sent[1] should be true after granting")
	}
}

func TestHandleRequestOutsideWindowDefersAck(t *testing.T) {
	role := producerRole(0, []int{1, 2}, nil)
	c := clock.New()
	q := queue.New(0) // capacity 0: nobody is immediately granted
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	if err := h.Handle(context.Background(), tr, Message{Kind: KindRequest, Resource: ResourceSlot, TS: 1, Sender: 1}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(tr.Sent) != 0 {
		t.Fatalf("expected no ACK while outside the grant window, got %d", len(tr.Sent))
	}
}

func TestHandleSelfCandidateSkipsNetworkAck(t *testing.T) {
	role := producerRole(0, nil, nil)
	c := clock.New()
	q := queue.New(0)
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	// Seed our own request at position 0, then a PRODUCE widens the
	// window to reach it: the candidate is self, so no ACK is sent over
	// the wire, but the tally self-grant still fires.
	q.AddRequest(0, 5)

	if err := h.Handle(context.Background(), tr, Message{Kind: KindProduce, Resource: ResourceSlot, TS: 1, Sender: 9}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(tr.Sent) != 0 {
		t.Fatalf("self-grant must not send a network ACK, got %d sends", len(tr.Sent))
	}
	if !tl.Complete() {
		t.Fatalf("tally should be complete: self was the only same-class peer and it just self-granted")
	}
}

func TestHandleAckRecordsInTally(t *testing.T) {
	role := producerRole(0, []int{1}, nil)
	c := clock.New()
	q := queue.New(1)
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	if err := h.Handle(context.Background(), tr, Message{Kind: KindAck, Resource: ResourceSlot, TS: 2, Sender: 1}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	// tally.New with one peer and no self-grant yet: recording that one
	// peer's ACK alone is not enough to complete.
	if tl.Complete() {
		t.Fatalf("tally should not be complete without self-grant")
	}
}

func TestHandleConsumeRemovesEntry(t *testing.T) {
	role := producerRole(0, []int{1}, nil)
	c := clock.New()
	q := queue.New(1)
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	q.AddRequest(1, 1)
	q.MarkAckSent(1)

	if err := h.Handle(context.Background(), tr, Message{Kind: KindConsume, Resource: ResourceSlot, TS: 4, Sender: 1}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty after CONSUME, Len() = %d", q.Len())
	}
}

func TestHandleConsumeOfAbsentPeerPanics(t *testing.T) {
	role := producerRole(0, []int{1}, nil)
	c := clock.New()
	q := queue.New(1)
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on CONSUME from a peer that never requested")
		}
	}()
	_ = h.Handle(context.Background(), tr, Message{Kind: KindConsume, Resource: ResourceSlot, TS: 1, Sender: 1})
}

func TestHandleWrongResourcePanics(t *testing.T) {
	role := producerRole(0, []int{1}, nil)
	c := clock.New()
	q := queue.New(1)
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic handling a message for a resource this rank does not track")
		}
	}()
	_ = h.Handle(context.Background(), tr, Message{Kind: KindRequest, Resource: ResourceArtifact, TS: 1, Sender: 1})
}

func TestHandleClockMonotonicity(t *testing.T) {
	role := producerRole(0, []int{1}, nil)
	c := clock.New()
	q := queue.New(1)
	tl := tally.New(role.SameClass)
	h := NewMessageHandler(role, c, q, tl, nil)
	tr := newFakeTransport(0)

	before := c.Now()
	const receivedTS = uint64(100)
	if err := h.Handle(context.Background(), tr, Message{Kind: KindAck, Resource: ResourceSlot, TS: receivedTS, Sender: 1}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	after := c.Now()
	if after <= before {
		t.Fatalf("clock did not advance: before=%d after=%d", before, after)
	}
	if after <= receivedTS {
		t.Fatalf("clock did not strictly exceed received ts: after=%d receivedTS=%d", after, receivedTS)
	}
}
