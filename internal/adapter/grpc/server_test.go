package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/simaogato/tradingbot-backend/internal/domain"
	"github.com/simaogato/tradingbot-backend/internal/usecase/report"
	"github.com/simaogato/tradingbot-backend/internal/usecase/signal"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

const testToken = "test-token-123"

// MockTradingService is a mock implementation of TradingService for testing
type MockTradingService struct {
	mock.Mock
}

func (m *MockTradingService) RunTradingPass(ctx context.Context) (*trading.PassResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trading.PassResult), args.Error(1)
}

func (m *MockTradingService) GetProfitLossReport(ctx context.Context) (*report.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

func (m *MockTradingService) Trades(ctx context.Context) ([]*domain.Trade, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Trade), args.Error(1)
}

// startServer serves svc over an in-memory listener and returns a client
func startServer(t *testing.T, svc TradingService, token string) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer(grpc.UnaryInterceptor(AuthInterceptor(testToken)))
	RegisterTradingBotServer(server, NewServer(svc))
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn, token)
}

func sampleReport() *report.Report {
	return &report.Report{
		Kind:        report.KindBalance,
		Strategy:    signal.NameThreshold,
		GeneratedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Summary: &report.Summary{
			CashBalance:    decimal.NewFromInt(104000),
			Holdings:       domain.Holdings{"AAPL": 0},
			MarketValue:    decimal.Zero,
			InitialBalance: decimal.NewFromInt(100000),
			ProfitLoss:     decimal.NewFromInt(4000),
		},
	}
}

func TestServer_RunTradingPass(t *testing.T) {
	svc := new(MockTradingService)
	trade := &domain.Trade{
		ID:        uuid.New(),
		Type:      domain.TradeTypeSell,
		Symbol:    "AAPL",
		Price:     decimal.NewFromInt(104),
		Quantity:  1000,
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	svc.On("RunTradingPass", mock.Anything).Return(&trading.PassResult{
		Strategy: signal.NameThreshold,
		Outcomes: []trading.SymbolOutcome{
			{Symbol: "AAPL", Action: signal.Sell, Reason: "rise_above_sell_threshold", Price: decimal.NewFromInt(104), Trade: trade},
			{Symbol: "GOOG", Action: signal.Hold, Reason: "missing_price", Skipped: true},
		},
	}, nil)
	svc.On("GetProfitLossReport", mock.Anything).Return(sampleReport(), nil)

	client := startServer(t, svc, testToken)
	resp, err := client.RunTradingPass(context.Background())

	require.NoError(t, err)
	require.NotNil(t, resp.Pass)
	require.Len(t, resp.Pass.Outcomes, 2)
	assert.Equal(t, signal.Sell, resp.Pass.Outcomes[0].Action)
	require.NotNil(t, resp.Pass.Outcomes[0].Trade)
	assert.Equal(t, trade.ID, resp.Pass.Outcomes[0].Trade.ID)
	assert.Equal(t, int64(1000), resp.Pass.Outcomes[0].Trade.Quantity)
	assert.True(t, resp.Pass.Outcomes[1].Skipped)
	assert.Nil(t, resp.Pass.Outcomes[1].Trade)

	require.NotNil(t, resp.Report)
	assert.True(t, decimal.NewFromInt(4000).Equal(resp.Report.Summary.ProfitLoss))
	svc.AssertExpectations(t)
}

func TestServer_GetProfitLossReport(t *testing.T) {
	svc := new(MockTradingService)
	svc.On("GetProfitLossReport", mock.Anything).Return(sampleReport(), nil)

	client := startServer(t, svc, "Bearer "+testToken)
	rep, err := client.GetProfitLossReport(context.Background())

	require.NoError(t, err)
	assert.Equal(t, report.KindBalance, rep.Kind)
	assert.True(t, decimal.NewFromInt(104000).Equal(rep.Summary.CashBalance))
	assert.Equal(t, int64(0), rep.Summary.Holdings["AAPL"])
}

func TestServer_ListTrades(t *testing.T) {
	svc := new(MockTradingService)
	svc.On("Trades", mock.Anything).Return(nil, nil)

	client := startServer(t, svc, testToken)
	trades, err := client.ListTrades(context.Background())

	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestServer_RejectsBadToken(t *testing.T) {
	svc := new(MockTradingService)

	client := startServer(t, svc, "wrong")
	_, err := client.GetProfitLossReport(context.Background())

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	svc.AssertNotCalled(t, "GetProfitLossReport", mock.Anything)
}

func TestServer_MapsTradingErrors(t *testing.T) {
	svc := new(MockTradingService)
	svc.On("RunTradingPass", mock.Anything).Return(nil, domain.NewMissingPriceError("GOOG"))

	client := startServer(t, svc, testToken)
	_, err := client.RunTradingPass(context.Background())

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Equal(t, "no price found for symbol GOOG", st.Message())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"Nil", nil, codes.OK},
		{"Missing price", domain.NewMissingPriceError("AAPL"), codes.FailedPrecondition},
		{"Malformed data", domain.NewMalformedDataError("bad trades.json", errors.New("eof")), codes.DataLoss},
		{"Persistence", domain.NewPersistenceError("disk", errors.New("full")), codes.Unavailable},
		{"Cancelled", domain.NewPersistenceError("trading pass cancelled", context.Canceled), codes.Canceled},
		{"Unknown", errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, status.Code(err))
			assert.Equal(t, tt.err.Error(), status.Convert(err).Message())
		})
	}
}
