package rpc

import (
	"context"
	"errors"

	"github.com/spooky-finn/go-bitmex-orderbook/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var errNotReady = status.Error(codes.Unavailable, domain.ErrNotReady.Error())

func (s *server) BBO(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.orderBookService.Snapshot()
	bid, ok := snap.BestBid()
	if !ok {
		return nil, errNotReady
	}
	ask, _ := snap.BestAsk()

	return structpb.NewStruct(map[string]interface{}{
		"bid": bid,
		"ask": ask,
	})
}

func (s *server) MidPrice(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.DoubleValue, error) {
	mid, ok := s.orderBookService.MidPrice()
	if !ok {
		return nil, errNotReady
	}
	return wrapperspb.Double(mid), nil
}

func (s *server) BBOVolumes(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	bid, ask, ok := s.orderBookService.BBOVolumes()
	if !ok {
		return nil, errNotReady
	}

	return structpb.NewStruct(map[string]interface{}{
		"bid": float64(bid),
		"ask": float64(ask),
	})
}

func (s *server) Ratio(ctx context.Context, in *wrapperspb.Int32Value) (*wrapperspb.DoubleValue, error) {
	if err := s.validationService.ValidateDepth(in.GetValue()); err != nil {
		return nil, err
	}

	r, err := s.orderBookService.Ratio(int(in.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Double(r), nil
}

func (s *server) LeveledView(ctx context.Context, in *wrapperspb.Int32Value) (*structpb.ListValue, error) {
	if err := s.validationService.ValidateDepth(in.GetValue()); err != nil {
		return nil, err
	}

	view, err := s.orderBookService.LeveledView(int(in.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}

	rows := make([]interface{}, 0, len(view))
	for _, level := range view {
		rows = append(rows, map[string]interface{}{
			"price": level.Price,
			"size":  float64(level.Size),
			"side":  string(level.Side),
		})
	}
	return structpb.NewList(rows)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotReady):
		return errNotReady
	case errors.Is(err, domain.ErrInvalidDepth):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
