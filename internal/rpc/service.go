package rpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/caxton-rt/caxton/internal/logging"
	"github.com/caxton-rt/caxton/internal/router"
)

// serviceName and methodName name the single RPC this package exposes,
// mirrored on both server registration and client invocation.
const (
	serviceName = "caxton.rpc.RemoteDelivery"
	methodName  = "Deliver"
	fullMethod  = "/" + serviceName + "/" + methodName
)

// Server exposes a local router.Router over gRPC so remote nodes can
// deliver messages into this node's router, following the teacher's own
// internal/grpc.Server lifecycle (NewServer/Start/Stop, logging.Op() on
// every transition).
type Server struct {
	router *router.Router
	server *grpc.Server
}

// NewServer constructs a Server that forwards accepted deliveries to r.
func NewServer(r *router.Router) *Server {
	return &Server{router: r}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: methodName,
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				var req deliverRequest
				if err := dec(&req); err != nil {
					return nil, err
				}
				return srv.(*Server).deliver(ctx, &req)
			},
		},
	},
}

func (s *Server) deliver(_ context.Context, req *deliverRequest) (*deliverResponse, error) {
	msg, err := fromEnvelope(req.Envelope)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "rpc: decode envelope: %v", err)
	}
	if _, err := s.router.RouteMessage(msg); err != nil {
		return &deliverResponse{Accepted: false, Reason: err.Error()}, nil
	}
	return &deliverResponse{Accepted: true}, nil
}

// Start listens on addr and serves the RemoteDelivery service.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen: %w", err)
	}
	s.server = grpc.NewServer()
	s.server.RegisterService(&serviceDesc, s)

	logging.Op().Info("rpc server started", "addr", addr)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			logging.Op().Error("rpc server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	if s.server != nil {
		s.server.GracefulStop()
	}
}
