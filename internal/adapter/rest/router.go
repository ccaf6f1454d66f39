package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/simaogato/tradingbot-backend/internal/adapter/auth"
	"github.com/simaogato/tradingbot-backend/internal/domain"
	"github.com/simaogato/tradingbot-backend/internal/usecase/report"
	"github.com/simaogato/tradingbot-backend/internal/usecase/trading"
)

// TradingService is the engine surface exposed over HTTP
type TradingService interface {
	RunTradingPass(ctx context.Context) (*trading.PassResult, error)
	GetProfitLossReport(ctx context.Context) (*report.Report, error)
	Trades(ctx context.Context) ([]*domain.Trade, error)
	Portfolio() domain.Portfolio
}

// Route is a single REST endpoint
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Handler serves the REST API
type Handler struct {
	service TradingService
	logger  *slog.Logger
}

// NewRouter returns the REST router. Everything under /api requires token.
func NewRouter(service TradingService, token string, logger *slog.Logger) *mux.Router {
	h := &Handler{service: service, logger: logger}

	router := mux.NewRouter().StrictSlash(true)
	router.Methods(http.MethodGet).Path("/healthz").Name("Health").
		Handler(RESTLogger(http.HandlerFunc(h.health), "Health", logger))

	routes := []Route{
		{"RunTradingPass", http.MethodGet, "/trade", h.runTradingPass},
		{"GetProfitLossReport", http.MethodGet, "/report", h.getReport},
		{"ListTrades", http.MethodGet, "/trades", h.listTrades},
		{"GetPortfolio", http.MethodGet, "/portfolio", h.getPortfolio},
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(TokenMiddleware(token))
	for _, route := range routes {
		var handler http.Handler
		handler = route.HandlerFunc
		handler = RESTLogger(handler, route.Name, logger)

		api.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(handler)
	}
	return router
}

// RESTLogger logs the requests internally
func RESTLogger(inner http.Handler, name string, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)

		logger.Debug("http request",
			"method", r.Method,
			"uri", r.RequestURI,
			"route", name,
			"duration", time.Since(start),
		)
	})
}

// TokenMiddleware rejects requests whose Authorization header does not carry token
func TokenMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.TokenMatches(r.Header.Get("Authorization"), token) {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type passResponse struct {
	Pass   *trading.PassResult `json:"pass"`
	Report *report.Report      `json:"report"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// runTradingPass runs one pass and answers with the report taken after it
func (h *Handler) runTradingPass(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunTradingPass(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	rep, err := h.service.GetProfitLossReport(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, passResponse{Pass: result, Report: rep})
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.GetProfitLossReport(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) listTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.service.Trades(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if trades == nil {
		trades = []*domain.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}

func (h *Handler) getPortfolio(w http.ResponseWriter, r *http.Request) {
	p := h.service.Portfolio()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cashBalance": p.CashBalance,
		"holdings":    p.Holdings,
	})
}

// writeError maps a missing price to 400, an abandoned request to 503 or
// 504 and everything else to 500
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMissingPrice):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		code = http.StatusServiceUnavailable
	}
	h.logger.Error("request failed", "status", code, "error", err)
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
