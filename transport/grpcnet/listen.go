package grpcnet

import (
	"net"

	"google.golang.org/grpc"

	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
)

// Listen starts a Controller on addr and returns the grpc.Server and
// listener so the caller controls the serve loop's lifetime, mirroring the
// retrieved transport library's main.go (net.Listen + grpc.NewServer +
// RegisterXServer + Serve).
func Listen(addr string, log netlog.Logger) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	srv := grpc.NewServer()
	RegisterControllerServer(srv, NewController(log))
	return srv, lis, nil
}
