package grpcnet

import (
	"fmt"
	"io"
	"sync"

	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
	"github.com/desecnd/gnomes-rat-killers/transport"
)

// Controller is the central relay: every rank dials in, registers with its
// rank number, and the Controller forwards point-to-point sends to the
// right stream. It is the networked analogue of localnet.Hub, grounded in
// the retrieved transport library's controller.Controller fan-out/forward
// loop.
type Controller struct {
	mu      sync.Mutex
	streams map[int]ControllerControlStreamServer
	log     netlog.Logger
}

// NewController builds an empty Controller. log may be nil.
func NewController(log netlog.Logger) *Controller {
	if log == nil {
		log = netlog.NoOp{}
	}
	return &Controller{streams: make(map[int]ControllerControlStreamServer), log: log}
}

// ControlStream implements ControllerServer.
func (c *Controller) ControlStream(stream ControllerControlStreamServer) error {
	var rank int
	registered := false

	defer func() {
		if registered {
			c.mu.Lock()
			delete(c.streams, rank)
			c.mu.Unlock()
			c.log.Printf("controller: rank %d disconnected", rank)
		}
	}()

	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var in clientMsg
		if err := decodeStruct(msg, &in); err != nil {
			return fmt.Errorf("controller: decode: %w", err)
		}

		switch in.Type {
		case "register":
			rank = in.Rank
			c.mu.Lock()
			c.streams[rank] = stream
			c.mu.Unlock()
			registered = true
			c.log.Printf("controller: rank %d registered", rank)

			reply, err := registeredReply()
			if err != nil {
				return err
			}
			if err := stream.Send(reply); err != nil {
				return err
			}

		case "send":
			c.forward(in)

		default:
			c.log.Printf("controller: unknown message type %q", in.Type)
		}
	}
}

func (c *Controller) forward(in clientMsg) {
	c.mu.Lock()
	dest, ok := c.streams[in.Dest]
	c.mu.Unlock()
	if !ok {
		c.log.Printf("controller: unknown destination rank %d", in.Dest)
		return
	}

	reply, err := forwardReply(in.Rank, transport.Payload{Kind: in.Kind, Resource: in.Res, TS: in.TS})
	if err != nil {
		c.log.Printf("controller: encode forward: %v", err)
		return
	}
	if err := dest.Send(reply); err != nil {
		c.log.Printf("controller: forward %d -> %d: %v", in.Rank, in.Dest, err)
	}
}
