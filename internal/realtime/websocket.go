package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/TAPUZE/project-chimera/internal/config"
	"github.com/TAPUZE/project-chimera/pkg/middleware"
	"github.com/TAPUZE/project-chimera/pkg/module"
)

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusGoingAway, reason)
}

// Endpoint upgrades client connections and feeds their frames to the hub.
type Endpoint struct {
	hub          *Hub
	origins      []string
	writeTimeout time.Duration
	readLimit    int64
	logger       *slog.Logger
}

func NewEndpoint(hub *Hub, cfg *config.RealtimeConfig, logger *slog.Logger) *Endpoint {
	return &Endpoint{
		hub:          hub,
		origins:      cfg.Origins,
		writeTimeout: cfg.WriteTimeoutDuration(),
		readLimit:    cfg.ReadLimitBytes(),
		logger:       logger.With("system", "realtime-endpoint"),
	}
}

// Serve runs one client connection until its first read error.
func (e *Endpoint) Serve(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	if clientID == "" {
		http.Error(w, "client id required", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: e.origins,
	})
	if err != nil {
		e.logger.Warn("websocket accept failed", "client_id", clientID, "error", err)
		return
	}
	defer c.CloseNow()

	if e.readLimit > 0 {
		c.SetReadLimit(e.readLimit)
	}

	ctx := r.Context()
	sess := e.hub.connect(ctx, clientID, &wsConn{conn: c, writeTimeout: e.writeTimeout})

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			if e.hub.release(clientID, sess) {
				e.logger.Info("client disconnected", "client_id", clientID, "status", closeStatus(err))
			}
			return
		}
		e.hub.HandleMessage(ctx, clientID, data)
	}
}

func closeStatus(err error) string {
	if status := websocket.CloseStatus(err); status != -1 {
		return status.String()
	}
	if errors.Is(err, context.Canceled) {
		return "context cancelled"
	}
	return err.Error()
}

// NewModule mounts the endpoint at the configured realtime path as
// GET <path>/{client_id}.
func NewModule(hub *Hub, cfg *config.RealtimeConfig, logger *slog.Logger) *module.Module {
	endpoint := NewEndpoint(hub, cfg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{client_id}", endpoint.Serve)

	m := module.New(cfg.Path, mux)
	m.Use(middleware.Logger(logger.With("module", "realtime")))
	return m
}
