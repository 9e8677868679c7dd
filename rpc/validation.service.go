package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ValidationServiceConfig struct {
	// MaxDepth is the depth the publisher snapshots; deeper requests can never be served.
	MaxDepth int
}

type ValidationService struct {
	config *ValidationServiceConfig
}

func NewValidationService(config *ValidationServiceConfig) *ValidationService {
	return &ValidationService{
		config: config,
	}
}

func (s *ValidationService) IsSupportedDepth(depth int32) bool {
	return depth >= 1 && int(depth) <= s.config.MaxDepth
}

func (s *ValidationService) ValidateDepth(depth int32) error {
	if !s.IsSupportedDepth(depth) {
		return status.Errorf(codes.InvalidArgument, "depth %d is not supported, use 1..%d", depth, s.config.MaxDepth)
	}
	return nil
}
