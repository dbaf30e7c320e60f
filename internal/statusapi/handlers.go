package statusapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Handlers holds dependencies shared by every HTTP route.
type Handlers struct {
	loop      LoopSource
	book      BookSource
	auditLog  AuditSource
	allowed   []string
	hub       *Hub
	logger    *slog.Logger
}

// NewHandlers builds the handler set. book and auditLog may be nil.
func NewHandlers(loop LoopSource, book BookSource, auditLog AuditSource, allowedOrigins []string, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		loop:     loop,
		book:     book,
		auditLog: auditLog,
		allowed:  allowedOrigins,
		hub:      hub,
		logger:   logger.With("component", "statusapi-handlers"),
	}
}

// HandleHealth is a liveness probe: it reports process health, not trading
// health, so it never consults the control loop.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSnapshot returns the current state as a single JSON document.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := buildSnapshot(r.Context(), h.loop, h.book, h.auditLog)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// HandleWebSocket upgrades the connection and registers a new subscriber,
// sending it one snapshot immediately so it doesn't have to wait for the
// next broadcast tick.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.allowed, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	snap := buildSnapshot(context.Background(), h.loop, h.book, h.auditLog)
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}

func isOriginAllowed(origin string, allowed []string, reqHost string) bool {
	if origin == "" {
		// Non-browser clients (curl, scripts) typically omit Origin.
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	normalized := normalizeOrigin(originURL.Scheme, originURL.Host)
	if normalized == "" {
		return false
	}

	if len(allowed) > 0 {
		for _, a := range allowed {
			u, err := url.Parse(a)
			if err != nil {
				continue
			}
			if normalized == normalizeOrigin(u.Scheme, u.Host) {
				return true
			}
		}
		return false
	}

	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	return host == normalizeHost(reqHost)
}

func normalizeOrigin(scheme, host string) string {
	if scheme == "" || host == "" {
		return ""
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
