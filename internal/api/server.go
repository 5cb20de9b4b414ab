package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"finance/internal/service"
	"finance/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	transactions *service.TransactionService
	auth         *service.AuthService
	registration *service.RegistrationService
	db           Pinger
	router       *chi.Mux
	logger       *zap.Logger
	httpServer   *http.Server
	startTime    time.Time
}

type Options struct {
	Transactions *service.TransactionService
	Auth         *service.AuthService
	Registration *service.RegistrationService
	DB           Pinger
	Logger       *zap.Logger
}

func NewServer(opts Options) *Server {
	s := &Server{
		transactions: opts.Transactions,
		auth:         opts.Auth,
		registration: opts.Registration,
		db:           opts.DB,
		logger:       opts.Logger,
		startTime:    time.Now(),
	}
	s.router = s.RegisterRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// fail logs the cause of err when it is a server side failure and writes the
// client-facing error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if service.KindOf(err) == service.KindUpstream {
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			fields = append(fields,
				zap.String("pg_code", string(pqErr.Code)),
				zap.String("pg_detail", pqErr.Detail))
		}
		s.logger.Error("request failed", fields...)
	}
	utils.WriteError(w, err)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("health check: database unreachable", zap.Error(err))
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	utils.WriteJSON(w, code, map[string]string{
		"status":    status,
		"uptime":    time.Since(s.startTime).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
