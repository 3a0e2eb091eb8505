package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/config"
	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/settingspage"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Addr            string
	MaxPorts        int           // Port capacity enforced on updates; renderer default when zero
	RequestTimeout  time.Duration // Per-request timeout for page and API routes
	ShutdownTimeout time.Duration

	// Reboot runs after a /boot response or a reboot API call has been
	// written. Nil disables rebooting.
	Reboot func()
}

// Server serves the settings page and the JSON API on top of a store.
type Server struct {
	config   *Config
	store    *config.Store
	renderer *settingspage.Renderer

	httpServer *http.Server
	listener   net.Listener

	mu          sync.Mutex
	closing     bool // set by Shutdown; new event streams are refused
	activeConns map[string]*websocket.Conn
	wg          sync.WaitGroup

	rebooted chan struct{}
}

// New creates a Server. A nil renderer selects the built-in page with
// cfg.MaxPorts as its capacity.
func New(cfg *Config, store *config.Store, renderer *settingspage.Renderer) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if renderer == nil {
		maxPorts := cfg.MaxPorts
		if maxPorts <= 0 {
			maxPorts = settingspage.DefaultMaxPorts
		}
		renderer = settingspage.NewRenderer(nil, settingspage.WithMaxPorts(maxPorts))
	}
	if cfg.MaxPorts <= 0 {
		cfg.MaxPorts = renderer.MaxPorts()
	}

	return &Server{
		config:      cfg,
		store:       store,
		renderer:    renderer,
		activeConns: make(map[string]*websocket.Conn),
		rebooted:    make(chan struct{}, 1),
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/events", s.handleEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
		r.Use(noCache)

		r.Get("/", s.handlePage)
		r.Get("/boot", s.handleBoot)

		r.Route("/api", func(r chi.Router) {
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)
			r.Post("/reboot", s.handleReboot)
		})
	})

	return r
}

// Listen opens the listener without serving. Addr is valid afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logging.Info("Starting serlink settings server",
		zap.String("addr", s.listener.Addr().String()),
		zap.Int("max_ports", s.config.MaxPorts),
		zap.String("settings", s.store.Path()),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests, closes event streams and waits for
// in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		if err = s.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = s.httpServer.Close()
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing event stream", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Timed out waiting for event streams")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of open event streams.
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// scheduleReboot runs the reboot hook in the background. Only one reboot
// may be pending at a time.
func (s *Server) scheduleReboot(reason string) bool {
	if s.config.Reboot == nil {
		logging.Warn("Reboot requested but no reboot hook configured", zap.String("reason", reason))
		return false
	}

	select {
	case s.rebooted <- struct{}{}:
	default:
		logging.Debug("Reboot already pending", zap.String("reason", reason))
		return true
	}

	logging.Info("Rebooting", zap.String("reason", reason))
	go func() {
		defer func() { <-s.rebooted }()
		s.config.Reboot()
	}()
	return true
}
