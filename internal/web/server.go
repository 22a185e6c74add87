package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/domain"
	"go.uber.org/zap"
)

// SignalHandler runs one decoded signal to its result.
type SignalHandler interface {
	Handle(ctx context.Context, sig domain.TradeSignal) domain.Result
}

// SignalDefaults fill strategy fields a payload leaves out.
type SignalDefaults struct {
	StopLossPct     decimal.Decimal
	StopLimitGapPct decimal.Decimal
	EquityPct       decimal.Decimal
}

type Options struct {
	Passphrase    string
	Defaults      SignalDefaults
	Gatherer      prometheus.Gatherer
	SignalTimeout time.Duration
}

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	handler SignalHandler
	hub     *Hub
	opts    Options
	logger  *zap.Logger
}

func NewServer(port int, handler SignalHandler, hub *Hub, opts Options, logger *zap.Logger) *Server {
	if opts.SignalTimeout <= 0 {
		opts.SignalTimeout = 2 * time.Minute
	}
	if !opts.Defaults.EquityPct.IsPositive() {
		opts.Defaults.EquityPct = decimal.NewFromInt(100)
	}
	s := &Server{
		router:  http.NewServeMux(),
		handler: handler,
		hub:     hub,
		opts:    opts,
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Landing Page
	s.router.HandleFunc("GET /{$}", s.handleLanding)

	// Keep-alive
	s.router.HandleFunc("POST /ping", s.handlePing)

	// Signals
	s.router.HandleFunc("POST /webhook", s.handleWebhook)

	// Metrics
	if s.opts.Gatherer != nil {
		s.router.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	} else {
		s.router.Handle("GET /metrics", promhttp.Handler())
	}

	// Outcome feed
	if s.hub != nil {
		s.router.Handle("GET /ws/outcomes", s.hub)
	}
}

// Handler exposes the routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
