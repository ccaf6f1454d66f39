package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/tradingbot-backend/internal/domain"
	"github.com/simaogato/tradingbot-backend/internal/usecase/report"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

// TradingService is the engine surface exposed over gRPC
type TradingService interface {
	RunTradingPass(ctx context.Context) (*trading.PassResult, error)
	GetProfitLossReport(ctx context.Context) (*report.Report, error)
	Trades(ctx context.Context) ([]*domain.Trade, error)
}

// Server implements the TradingBotService gRPC server
type Server struct {
	TradingService TradingService
}

var _ TradingBotServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(tradingService TradingService) *Server {
	return &Server{
		TradingService: tradingService,
	}
}

// RunTradingPass handles the RunTradingPass RPC.
// The response carries the pass outcomes and the report taken right after it.
func (s *Server) RunTradingPass(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	result, err := s.TradingService.RunTradingPass(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	rep, err := s.TradingService.GetProfitLossReport(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"pass":   result,
		"report": rep,
	})
}

// GetProfitLossReport handles the GetProfitLossReport RPC
func (s *Server) GetProfitLossReport(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rep, err := s.TradingService.GetProfitLossReport(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(rep)
}

// ListTrades handles the ListTrades RPC
func (s *Server) ListTrades(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	trades, err := s.TradingService.Trades(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if trades == nil {
		trades = []*domain.Trade{}
	}
	return toStruct(map[string]interface{}{
		"trades": trades,
	})
}

// toStruct converts a JSON-tagged value into a protobuf Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// fromStruct decodes a protobuf Struct into a JSON-tagged value
func fromStruct(s *structpb.Struct, v interface{}) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// mapError converts trading errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, errorMsg)
	case errors.Is(err, domain.ErrMissingPrice):
		return status.Error(codes.FailedPrecondition, errorMsg)
	// Malformed data is also a persistence error, so it must be checked first
	case errors.Is(err, domain.ErrMalformedData):
		return status.Error(codes.DataLoss, errorMsg)
	case errors.Is(err, domain.ErrPersistence):
		return status.Error(codes.Unavailable, errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Error(codes.Internal, errorMsg)
}
