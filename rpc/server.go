package rpc

import (
	"context"
	"net"

	logging "github.com/spooky-finn/go-bitmex-orderbook/infrastructure/logger"
	"github.com/spooky-finn/go-bitmex-orderbook/usecase"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var logger = logging.New("rpc")

const serviceName = "bookfeed.v1.OrderBookService"

// OrderBookServiceServer is the read surface over the published snapshot.
// Messages are protobuf well-known types so no generated code is needed.
type OrderBookServiceServer interface {
	BBO(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	MidPrice(context.Context, *emptypb.Empty) (*wrapperspb.DoubleValue, error)
	BBOVolumes(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Ratio(context.Context, *wrapperspb.Int32Value) (*wrapperspb.DoubleValue, error)
	LeveledView(context.Context, *wrapperspb.Int32Value) (*structpb.ListValue, error)
}

var OrderBookService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrderBookServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("BBO", newEmpty, OrderBookServiceServer.BBO),
		unary("MidPrice", newEmpty, OrderBookServiceServer.MidPrice),
		unary("BBOVolumes", newEmpty, OrderBookServiceServer.BBOVolumes),
		unary("Ratio", newInt32, OrderBookServiceServer.Ratio),
		unary("LeveledView", newInt32, OrderBookServiceServer.LeveledView),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookfeed/v1/orderbook.proto",
}

func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }

func newInt32() *wrapperspb.Int32Value { return &wrapperspb.Int32Value{} }

func unary[Req, Resp proto.Message](
	name string,
	newReq func() Req,
	call func(OrderBookServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderBookServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(OrderBookServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type server struct {
	orderBookService  *usecase.OrderBookService
	validationService *ValidationService
}

func NewServer(svc *usecase.OrderBookService, conf *ValidationServiceConfig) *server {
	return &server{
		orderBookService:  svc,
		validationService: NewValidationService(conf),
	}
}

func (s *server) Register(registrar grpc.ServiceRegistrar) {
	registrar.RegisterService(&OrderBookService_ServiceDesc, s)
}

// Serve listens on addr until ctx is done.
func Serve(ctx context.Context, addr string, s *server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer()
	s.Register(grpcServer)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	logger.Info().Str("addr", lis.Addr().String()).Msg("grpc server listening")
	return grpcServer.Serve(lis)
}
