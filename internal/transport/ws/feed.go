// Package ws serves zone event feeds over WebSocket. Each connection watches
// one zone: GET /zones/{id}/feed streams JSON text frames, or msgpack binary
// frames with ?format=msgpack.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/gameserver"
	"github.com/cory-johannsen/realm/internal/transport/feed"
)

const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	maxMessageSize   = 512
)

// Config tunes feed connections. Zero values select the defaults.
type Config struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PongTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = feed.DefaultBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteWait
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = defaultPongWait
	}
	return c
}

// encoder turns an event into one frame.
type encoder struct {
	frame  int
	encode func(gameserver.Event) ([]byte, error)
}

var encoders = map[string]encoder{
	"json": {
		frame:  websocket.TextMessage,
		encode: func(ev gameserver.Event) ([]byte, error) { return json.Marshal(ev) },
	},
	"msgpack": {
		frame:  websocket.BinaryMessage,
		encode: func(ev gameserver.Event) ([]byte, error) { return msgpack.Marshal(ev) },
	},
}

// Handler upgrades feed requests and pumps hub events to the socket.
type Handler struct {
	hub      *feed.Hub
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler.
//
// Precondition: hub and logger must be non-nil.
func NewHandler(hub *feed.Hub, cfg Config, logger *zap.Logger) *Handler {
	if hub == nil || logger == nil {
		panic("ws.NewHandler: hub and logger must not be nil")
	}
	return &Handler{
		hub:    hub,
		cfg:    cfg.withDefaults(),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the feed mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /zones/{id}/feed", h.ServeFeed)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ServeFeed handles one feed connection until the client leaves or the hub
// closes.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	zoneID := r.PathValue("id")
	if zoneID == "" {
		http.Error(w, "zone id required", http.StatusBadRequest)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	enc, ok := encoders[format]
	if !ok {
		http.Error(w, "unsupported format "+format, http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("feed upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	c := &client{
		conn:    conn,
		sub:     h.hub.Subscribe(zoneID, h.cfg.SendBuffer),
		enc:     enc,
		cfg:     h.cfg,
		logger:  h.logger.With(zap.String("zone", zoneID), zap.String("remote", r.RemoteAddr)),
		readEnd: make(chan struct{}),
	}
	c.logger.Info("feed connected", zap.String("format", format))
	go c.readPump()
	c.writePump()
}

type client struct {
	conn    *websocket.Conn
	sub     *feed.Subscription
	enc     encoder
	cfg     Config
	logger  *zap.Logger
	readEnd chan struct{}
}

// readPump discards client frames and keeps the read deadline fresh on
// pongs. It closes readEnd when the peer goes away.
func (c *client) readPump() {
	defer close(c.readEnd)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("feed read failed", zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.cfg.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.sub.Close()
		c.conn.Close()
		c.logger.Info("feed disconnected", zap.Int64("dropped", c.sub.Dropped()))
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			data, err := c.enc.encode(ev)
			if err != nil {
				c.logger.Error("encoding zone event", zap.String("event", string(ev.Type)), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(c.enc.frame, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.readEnd:
			return
		}
	}
}
