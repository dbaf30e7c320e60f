package statusapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/laddermaker/ladderbot/internal/config"
)

// Server runs the read-only HTTP/WebSocket status surface.
type Server struct {
	cfg      config.StatusAPIConfig
	handlers *Handlers
	hub      *Hub
	server   *http.Server
	logger   *slog.Logger

	pollInterval time.Duration
}

// New builds a Server. book and auditLog may be nil when those features are
// disabled (no WebSocket feed configured, audit trail off).
func New(cfg config.StatusAPIConfig, loop LoopSource, book BookSource, auditLog AuditSource, pollInterval time.Duration, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(loop, book, auditLog, cfg.AllowedOrigins, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:          cfg,
		handlers:     handlers,
		hub:          hub,
		server:       httpServer,
		logger:       logger.With("component", "statusapi-server"),
		pollInterval: pollInterval,
	}
}

// Run starts the hub, the broadcast poller, and the HTTP server, and blocks
// until ctx is cancelled or ListenAndServe fails.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run()
	go s.pollAndBroadcast(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status api starting", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("status api shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// pollAndBroadcast periodically rebuilds the snapshot and pushes it to
// every connected WebSocket client. The control loop has no event stream
// of its own to subscribe to, so this is a poll rather than a push.
func (s *Server) pollAndBroadcast(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := buildSnapshot(ctx, s.handlers.loop, s.handlers.book, s.handlers.auditLog)
			s.hub.BroadcastSnapshot(snap)
		}
	}
}
