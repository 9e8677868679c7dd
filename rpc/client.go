package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type OrderBookServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderBookServiceClient(cc grpc.ClientConnInterface) *OrderBookServiceClient {
	return &OrderBookServiceClient{cc: cc}
}

func (c *OrderBookServiceClient) BBO(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/BBO", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderBookServiceClient) MidPrice(ctx context.Context, opts ...grpc.CallOption) (float64, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/MidPrice", &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *OrderBookServiceClient) BBOVolumes(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/BBOVolumes", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderBookServiceClient) Ratio(ctx context.Context, depth int32, opts ...grpc.CallOption) (float64, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Ratio", wrapperspb.Int32(depth), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *OrderBookServiceClient) LeveledView(ctx context.Context, depth int32, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/LeveledView", wrapperspb.Int32(depth), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
