package grpcnet

// This file is the hand-written equivalent of what protoc-gen-go-grpc would
// emit from a one-RPC .proto file. No .proto compiler is invoked anywhere
// in this repository (see SPEC_FULL.md §4.7), so the ServiceDesc, the
// client/server stream wrappers and the registration helper below are
// written directly against grpc-go's low-level streaming API instead. The
// wire message type is *structpb.Struct (a real, already-compiled protobuf
// message), so no generated message type is needed either.

import (
	"context"

	"google.golang.org/grpc"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

const controllerServiceName = "gnomex.Controller"

// ControllerServer is implemented by the central relay.
type ControllerServer interface {
	ControlStream(ControllerControlStreamServer) error
}

// ControllerControlStreamServer is the server-side view of the
// bidirectional control stream.
type ControllerControlStreamServer interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

type controllerControlStreamServer struct {
	grpc.ServerStream
}

func (s *controllerControlStreamServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func (s *controllerControlStreamServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _Controller_ControlStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(ControllerServer).ControlStream(&controllerControlStreamServer{ServerStream: stream})
}

// ControllerServiceDesc is registered with a *grpc.Server via
// RegisterControllerServer.
var ControllerServiceDesc = grpc.ServiceDesc{
	ServiceName: controllerServiceName,
	HandlerType: (*ControllerServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ControlStream",
			Handler:       _Controller_ControlStream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "gnomex/controller.proto",
}

// RegisterControllerServer registers srv on s.
func RegisterControllerServer(s grpc.ServiceRegistrar, srv ControllerServer) {
	s.RegisterService(&ControllerServiceDesc, srv)
}

// ControllerClient dials the control stream.
type ControllerClient interface {
	ControlStream(ctx context.Context, opts ...grpc.CallOption) (ControllerControlStreamClient, error)
}

// ControllerControlStreamClient is the client-side view of the
// bidirectional control stream.
type ControllerControlStreamClient interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type controllerControlStreamClient struct {
	grpc.ClientStream
}

func (c *controllerControlStreamClient) Send(m *structpb.Struct) error {
	return c.ClientStream.SendMsg(m)
}

func (c *controllerControlStreamClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type controllerClient struct {
	cc grpc.ClientConnInterface
}

// NewControllerClient builds a client for cc.
func NewControllerClient(cc grpc.ClientConnInterface) ControllerClient {
	return &controllerClient{cc: cc}
}

func (c *controllerClient) ControlStream(ctx context.Context, opts ...grpc.CallOption) (ControllerControlStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &ControllerServiceDesc.Streams[0], "/"+controllerServiceName+"/ControlStream", opts...)
	if err != nil {
		return nil, err
	}
	return &controllerControlStreamClient{ClientStream: stream}, nil
}
