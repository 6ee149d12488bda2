package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/observability"
	"github.com/kbukum/wavscribe/provider"
	"github.com/kbukum/wavscribe/server/endpoint"
	"github.com/kbukum/wavscribe/server/middleware"
)

// Deps are the collaborators served over HTTP.
type Deps struct {
	Transcriber endpoint.Transcriber
	// Engine is reported by /health.
	Engine  provider.Provider
	Metrics *observability.Metrics
}

// Server is an HTTP server backed by Gin.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a new Server. No middleware or routes are registered yet;
// call ApplyDefaults.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	gin.SetMode(cfg.Mode)

	engine := gin.New()

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           h2c.NewHandler(engine, h2s),
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the root handler, including h2c support.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ApplyMiddleware applies the standard middleware stack: recovery,
// request ID, body size limit, request logging and, when a secret is
// configured, bearer token authentication.
func (s *Server) ApplyMiddleware(metrics *observability.Metrics) {
	s.engine.Use(middleware.Recovery(s.log))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.BodySizeLimit(s.config.MaxBodyBytes()))
	s.engine.Use(middleware.RequestLogger(s.log, metrics))
	if s.config.AuthSecret != "" {
		s.engine.Use(middleware.Auth(middleware.AuthConfig{
			TokenValidator: middleware.HMACValidator(s.config.AuthSecret, s.config.AuthIssuer),
			SkipPaths:      []string{"/health", "/version"},
		}))
	}
}

// RegisterRoutes registers the transcription, health and version endpoints.
func (s *Server) RegisterRoutes(serviceName string, deps Deps) {
	var checker endpoint.HealthChecker
	if deps.Engine != nil {
		checker = func(ctx context.Context) []observability.Health {
			return []observability.Health{observability.ProviderHealth(ctx, deps.Engine.Name(), deps.Engine)}
		}
	}
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/version", endpoint.Version())

	v1 := s.engine.Group("/v1")
	v1.POST("/transcriptions", endpoint.Transcribe(deps.Transcriber, s.log))
}

// ApplyDefaults applies the standard middleware stack and registers routes.
func (s *Server) ApplyDefaults(serviceName string, deps Deps) {
	s.ApplyMiddleware(deps.Metrics)
	s.RegisterRoutes(serviceName, deps)
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.Fields("error", err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.Fields("error", err.Error()))
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts it
// down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop(context.WithoutCancel(ctx))
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}
