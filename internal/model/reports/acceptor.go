package reports

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"max.ks1230/spending-tracker/internal/logger"
)

const (
	acceptorServiceName = "reports.ReportAcceptor"
	acceptReportMethod  = "/" + acceptorServiceName + "/AcceptReport"
)

type reportAcceptor interface {
	AcceptReport(ctx context.Context, report ReportResult) error
}

type acceptorService interface {
	AcceptReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var acceptorServiceDesc = grpc.ServiceDesc{
	ServiceName: acceptorServiceName,
	HandlerType: (*acceptorService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AcceptReport", Handler: acceptReportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reports/acceptor",
}

func acceptReportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(acceptorService).AcceptReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: acceptReportMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(acceptorService).AcceptReport(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type AcceptorServer struct {
	acceptor reportAcceptor
	server   *grpc.Server
	lis      net.Listener
}

func NewServer(port int, acceptor reportAcceptor) (*AcceptorServer, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.Wrap(err, "cannot create server")
	}
	return newServer(lis, acceptor), nil
}

func newServer(lis net.Listener, acceptor reportAcceptor) *AcceptorServer {
	rpcServer := grpc.NewServer()
	service := &AcceptorServer{
		acceptor: acceptor,
		server:   rpcServer,
		lis:      lis,
	}
	rpcServer.RegisterService(&acceptorServiceDesc, service)
	return service
}

func (s *AcceptorServer) Serve() error {
	logger.Info("gRPC server listening", zap.Any("addr", s.lis.Addr()))
	err := s.server.Serve(s.lis)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error("failed to serve gRPC", zap.Error(err))
		return err
	}
	return nil
}

func (s *AcceptorServer) Shutdown() {
	s.server.GracefulStop()
	logger.Info("grpc server stopped")
}

func (s *AcceptorServer) AcceptReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	err := s.acceptor.AcceptReport(ctx, resultFromStruct(in))
	return operationStatus(err), err
}
