package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/gridnode.net/internal/config"
	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/ports/secondary"
	"gitlab.com/gridnode.net/internal/core/services/workerpool"
	"gitlab.com/gridnode.net/internal/handlers"
	"gitlab.com/gridnode.net/internal/handlers/workers"
)

type ServiceProvider struct {
	workerPool workerpool.IWorkerPoolService
	auditLog   secondary.AuditLog
	signals    secondary.SignalRelay
}

func NewServiceProvider(
	workerPool workerpool.IWorkerPoolService,
	auditLog secondary.AuditLog,
	signals secondary.SignalRelay,
) *ServiceProvider {
	return &ServiceProvider{
		workerPool: workerPool,
		auditLog:   auditLog,
		signals:    signals,
	}
}

type Server struct {
	router          *mux.Router
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	jwtCfg          *config.JwtConfig
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, jwtCfg *config.JwtConfig, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		jwtCfg:          jwtCfg,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	mw := handlers.New(s.jwtCfg)
	workers.
		NewHandler(s.ServiceProvider.workerPool, s.ServiceProvider.auditLog, s.ServiceProvider.signals).
		Register(r, mw)
	s.router = r
	return nil
}

func (s *Server) Start(ctx context.Context) {
	// Set up server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

}

func (s *Server) Stop() {
	s.logger.Info("Shutting down http server...")
}
