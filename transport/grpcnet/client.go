package grpcnet

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
	"github.com/desecnd/gnomes-rat-killers/internal/trace"
	"github.com/desecnd/gnomes-rat-killers/transport"
)

type inboundMsg struct {
	from    int
	payload transport.Payload
}

// Client implements transport.Transport by dialing a Controller and
// registering this rank, grounded in the retrieved transport library's
// dsnet.DSNet (connect, register, buffered Inbox channel, background
// listen goroutine).
type Client struct {
	self int
	conn *grpc.ClientConn
	stream ControllerControlStreamClient

	inbox   chan inboundMsg
	pending *inboundMsg

	registered chan struct{}
	closed     chan struct{}
	log        netlog.Logger

	// Trace, when non-nil, receives a JSONL event for every send and
	// forwarded receive, grounded in the retrieved library's per-message
	// UUID trace log.
	Trace *trace.Writer
}

// Dial connects rank to a Controller listening at addr and blocks until
// registration is acknowledged or ctx is done. ctx bounds only that wait;
// the control stream stays open until Close.
func Dial(ctx context.Context, addr string, rank int, log netlog.Logger) (*Client, error) {
	if log == nil {
		log = netlog.NoOp{}
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpcnet: dial %s: %w", addr, err)
	}

	client := NewControllerClient(conn)
	stream, err := client.ControlStream(context.Background())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("grpcnet: open control stream: %w", err)
	}

	c := &Client{
		self:       rank,
		conn:       conn,
		stream:     stream,
		inbox:      make(chan inboundMsg, 256),
		registered: make(chan struct{}),
		closed:     make(chan struct{}),
		log:        log,
	}

	reg, err := registerMsg(rank)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := stream.Send(reg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("grpcnet: register: %w", err)
	}

	go c.listen()

	select {
	case <-c.registered:
		return c, nil
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	}
}

func (c *Client) listen() {
	for {
		msg, err := c.stream.Recv()
		if err == io.EOF {
			close(c.inbox)
			return
		}
		if err != nil {
			c.log.Printf("grpcnet: rank %d: recv error: %v", c.self, err)
			close(c.inbox)
			return
		}

		var in serverMsg
		if err := decodeStruct(msg, &in); err != nil {
			c.log.Printf("grpcnet: rank %d: decode: %v", c.self, err)
			continue
		}

		switch in.Type {
		case "registered":
			select {
			case <-c.registered:
			default:
				close(c.registered)
			}
		case "forward":
			c.Trace.Emit(trace.EvtRecv, trace.NewMessageID(), in.Kind, in.Res, in.TS, in.From, c.self)
			select {
			case c.inbox <- inboundMsg{from: in.From, payload: transport.Payload{Kind: in.Kind, Resource: in.Res, TS: in.TS}}:
			case <-c.closed:
				return
			}
		default:
			c.log.Printf("grpcnet: rank %d: unknown server message %q", c.self, in.Type)
		}
	}
}

// Self returns the bound rank.
func (c *Client) Self() int {
	return c.self
}

// Probe reports whether a message is already buffered, without blocking.
func (c *Client) Probe(ctx context.Context) (bool, error) {
	if c.pending != nil {
		return true, nil
	}
	select {
	case m, ok := <-c.inbox:
		if !ok {
			return false, fmt.Errorf("grpcnet: rank %d inbox closed", c.self)
		}
		c.pending = &m
		return true, nil
	default:
		return false, nil
	}
}

// Recv returns the message buffered by the most recent successful Probe,
// blocking for the next one if none is pending.
func (c *Client) Recv(ctx context.Context) (transport.Payload, int, error) {
	if c.pending != nil {
		m := *c.pending
		c.pending = nil
		return m.payload, m.from, nil
	}
	select {
	case m, ok := <-c.inbox:
		if !ok {
			return transport.Payload{}, 0, fmt.Errorf("grpcnet: rank %d inbox closed", c.self)
		}
		return m.payload, m.from, nil
	case <-ctx.Done():
		return transport.Payload{}, 0, ctx.Err()
	}
}

// Send delivers p to dest via the Controller.
func (c *Client) Send(ctx context.Context, dest int, p transport.Payload) error {
	msg, err := sendMsg(c.self, dest, p)
	if err != nil {
		return err
	}
	c.Trace.Emit(trace.EvtSend, trace.NewMessageID(), p.Kind, p.Resource, p.TS, c.self, dest)
	return c.stream.Send(msg)
}

// Close tears down the stream and connection.
func (c *Client) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	c.stream.CloseSend()
	return c.conn.Close()
}
