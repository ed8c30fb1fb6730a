package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/paywatch/internal/config"
	"github.com/user/paywatch/internal/dedupe"
	"github.com/user/paywatch/internal/domain"
	"github.com/user/paywatch/internal/fanout"
	"github.com/user/paywatch/internal/logbuf"
	"github.com/user/paywatch/internal/monitoring"
)

// Dispatcher issues the downstream fan-out for one failure record.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec domain.FailureRecord) fanout.Result
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	dispatcher Dispatcher
	dedupe     dedupe.Store
	buffer     *logbuf.Buffer
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, d Dispatcher, ds dedupe.Store, b *logbuf.Buffer, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:     cfg,
		dispatcher: d,
		dedupe:     ds,
		buffer:     b,
		metrics:    m,
		logger:     l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
