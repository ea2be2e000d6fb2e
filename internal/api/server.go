package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"talentlink/internal/config"
	"talentlink/internal/logging"
	"talentlink/internal/securestore"
	"talentlink/internal/session"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server represents the local HTTP shell
type Server struct {
	config     config.APIConfig
	logger     *logrus.Entry
	router     *mux.Router
	httpServer *http.Server
	handlers   *Handlers
	events     *EventHub
	gatherer   prometheus.Gatherer
}

// NewServer creates a new API server instance. gatherer may be nil, in which
// case /metrics is not mounted.
func NewServer(cfg config.APIConfig, logger *logrus.Logger, store *securestore.Store, sessions *session.Manager, gatherer prometheus.Gatherer, version string) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	entry := logging.NewServiceLogger(logger, "api")
	events := NewEventHub(entry)

	server := &Server{
		config:   cfg,
		logger:   entry,
		router:   mux.NewRouter(),
		handlers: NewHandlers(entry, store, sessions, events, version),
		events:   events,
		gatherer: gatherer,
	}

	events.upgrader.CheckOrigin = server.originAllowed

	server.setupMiddleware()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return server
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		return s.Shutdown()
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.events.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Error during server shutdown")
		return err
	}

	s.logger.Info("API server shutdown complete")
	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.originMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// mux only answers 405 on its own for routes of the root router
	methodNotAllowed := http.HandlerFunc(s.handlers.MethodNotAllowed)
	s.router.MethodNotAllowedHandler = methodNotAllowed
	api.MethodNotAllowedHandler = methodNotAllowed

	api.HandleFunc("/health", s.handlers.HealthCheck).Methods("GET")

	api.HandleFunc("/session", s.handlers.CreateSession).Methods("POST")
	api.HandleFunc("/session", s.handlers.GetSession).Methods("GET")
	api.HandleFunc("/session", s.handlers.DeleteSession).Methods("DELETE")
	api.HandleFunc("/session/events", s.handlers.SessionEvents).Methods("GET")

	api.HandleFunc("/validate/{kind}", s.handlers.Validate).Methods("POST")

	if s.gatherer != nil {
		api.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}
