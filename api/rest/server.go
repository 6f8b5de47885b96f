package rest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/thecardroom/tcr/api"
	"github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/mint"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
)

// Runner is the mint runner state shown on /api/v1/status.
type Runner interface {
	Snapshot() mint.Snapshot
}

// PaymentReader is the read side of the mint ledger.
type PaymentReader interface {
	GetPayment(ref prt.UTxORef) (*storage.Payment, error)
	Payments(status storage.PaymentStatus) ([]*storage.Payment, error)
	CountByStatus() (map[storage.PaymentStatus]int, error)
}

// Server REST API 서버 구조체
type Server struct {
	port       int
	network    string
	httpServer *http.Server
	runner     Runner
	payments   PaymentReader
	wsHub      *api.WSHub
}

// NewServer API 서버 인스턴스 생성. runner may be nil when only the ledger
// is served.
func NewServer(port int, network prt.Network, runner Runner, payments PaymentReader) *Server {
	wsHub := api.NewWSHub()
	if runner != nil {
		wsHub.SetSnapshotProvider(func() interface{} { return runner.Snapshot() })
	}
	return &Server{
		port:     port,
		network:  string(network),
		runner:   runner,
		payments: payments,
		wsHub:    wsHub,
	}
}

// SetRunner attaches the mint runner before Start.
func (s *Server) SetRunner(runner Runner) {
	s.runner = runner
	s.wsHub.SetSnapshotProvider(func() interface{} { return runner.Snapshot() })
}

// Handler builds the router without listening.
func (s *Server) Handler() http.Handler {
	return setupRouter(s.network, s.runner, s.payments, s.wsHub)
}

// Start API 서버 시작
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("REST API Server starting on port ", s.port)
	logger.Info("WebSocket available at ws://localhost:", s.port, "/ws")
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("REST API Server error:", err)
		}
	}()

	return nil
}

// Stop API 서버 종료
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down REST API Server...")
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetWSHub WebSocket Hub 반환
func (s *Server) GetWSHub() *api.WSHub {
	return s.wsHub
}
