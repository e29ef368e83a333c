package wsapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/slok/dlsync/internal/log"
	"github.com/slok/dlsync/internal/store"
)

// SnapshotSource is the source of task snapshots.
type SnapshotSource interface {
	Snapshot() store.Snapshot
	Subscribe(buffer int) (<-chan store.Snapshot, func())
}

// HandlerConfig is the configuration of the snapshot HTTP handlers.
type HandlerConfig struct {
	Source SnapshotSource
	// AllowedOrigins for websocket connections, `*` allows any. Requests without origin are always allowed.
	AllowedOrigins []string
	WriteTimeout   time.Duration
	// SubscribeBuffer is the number of snapshots queued per connection.
	SubscribeBuffer int
	Logger          log.Logger
}

func (c *HandlerConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("snapshot source is required")
	}

	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}

	if c.SubscribeBuffer <= 0 {
		c.SubscribeBuffer = 16
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "wsapi.Handler"})

	return nil
}

// Handler serves the task snapshots. The websocket endpoint pushes the current
// snapshot on connect and every change after it.
type Handler struct {
	source       SnapshotSource
	allowOrigins []string
	writeTimeout time.Duration
	buffer       int
	upgrader     websocket.Upgrader
	logger       log.Logger
}

// NewHandler returns a new snapshot handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h := &Handler{
		source:       cfg.Source,
		allowOrigins: cfg.AllowedOrigins,
		writeTimeout: cfg.WriteTimeout,
		buffer:       cfg.SubscribeBuffer,
		logger:       cfg.Logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}

	return h, nil
}

// Routes returns the HTTP routes of the handler.
//
//   - `/api/ws`: Websocket snapshot stream.
//   - `/api/snapshot`: Current snapshot as JSON.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ws", h.serveWS)
	mux.HandleFunc("GET /api/snapshot", h.serveSnapshot)
	return mux
}

func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.source.Snapshot()); err != nil {
		h.logger.Warningf("Could not write snapshot: %s", err)
	}
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debugf("Could not upgrade connection: %s", err)
		return
	}
	defer conn.Close()

	logger := h.logger.WithValues(log.Kv{"remote": r.RemoteAddr})
	logger.Debugf("Snapshot subscriber connected")
	defer logger.Debugf("Snapshot subscriber disconnected")

	ch, cancel := h.source.Subscribe(h.buffer)
	defer cancel()

	// Drain client messages, we only care about the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case snap, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(h.writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				logger.Debugf("Could not write snapshot: %s", err)
				return
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, o := range h.allowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}

	return false
}
