package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/tradingbot-backend/internal/domain"
	"github.com/simaogato/tradingbot-backend/internal/usecase/report"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

// PassResponse is the decoded RunTradingPass response
type PassResponse struct {
	Pass   *trading.PassResult `json:"pass"`
	Report *report.Report      `json:"report"`
}

// Client calls a remote TradingBotService
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewClient creates a client on cc that authenticates with token
func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

func (c *Client) invoke(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", c.token)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RunTradingPass runs a pass on the server
func (c *Client) RunTradingPass(ctx context.Context, opts ...grpc.CallOption) (*PassResponse, error) {
	out, err := c.invoke(ctx, RunTradingPassMethod, opts...)
	if err != nil {
		return nil, err
	}
	var resp PassResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfitLossReport fetches the current report
func (c *Client) GetProfitLossReport(ctx context.Context, opts ...grpc.CallOption) (*report.Report, error) {
	out, err := c.invoke(ctx, GetProfitLossReportMethod, opts...)
	if err != nil {
		return nil, err
	}
	var rep report.Report
	if err := fromStruct(out, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// ListTrades fetches the trade ledger
func (c *Client) ListTrades(ctx context.Context, opts ...grpc.CallOption) ([]*domain.Trade, error) {
	out, err := c.invoke(ctx, ListTradesMethod, opts...)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Trades []*domain.Trade `json:"trades"`
	}
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Trades, nil
}
