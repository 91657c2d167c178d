package engine

import (
	"context"

	"github.com/desecnd/gnomes-rat-killers/transport"
)

// fakeTransport is a minimal transport.Transport double: Send appends to
// Sent instead of delivering anywhere, and Probe/Recv drain a manually
// fed queue. It exists purely so unit tests can drive the handler/FSM
// without standing up a localnet.Hub.
type fakeTransport struct {
	self    int
	Sent    []sentMsg
	inbound []inboundPair
}

type sentMsg struct {
	Dest    int
	Payload transport.Payload
}

type inboundPair struct {
	From    int
	Payload transport.Payload
}

func newFakeTransport(self int) *fakeTransport {
	return &fakeTransport{self: self}
}

func (f *fakeTransport) Self() int { return f.self }

func (f *fakeTransport) Probe(ctx context.Context) (bool, error) {
	return len(f.inbound) > 0, nil
}

func (f *fakeTransport) Recv(ctx context.Context) (transport.Payload, int, error) {
	if len(f.inbound) == 0 {
		return transport.Payload{}, 0, context.Canceled
	}
	m := f.inbound[0]
	f.inbound = f.inbound[1:]
	return m.Payload, m.From, nil
}

func (f *fakeTransport) Send(ctx context.Context, dest int, p transport.Payload) error {
	f.Sent = append(f.Sent, sentMsg{Dest: dest, Payload: p})
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) feed(from int, p transport.Payload) {
	f.inbound = append(f.inbound, inboundPair{From: from, Payload: p})
}
