package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"snapquiz-server-go/internal/domain/pipeline"
	"snapquiz-server-go/internal/platform/logging"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
	// The page may be served from a different origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades /ws requests and streams pipeline events to the page.
type Handler struct {
	hub    *Hub
	state  *pipeline.Tracker
	logger *logging.Logger
}

func NewHandler(hub *Hub, state *pipeline.Tracker, logger *logging.Logger) *Handler {
	return &Handler{hub: hub, state: state, logger: logger}
}

// Handle performs the upgrade, sends the current run state so a reconnecting
// page paints immediately, and keeps the connection registered until the peer
// goes away.
func (h *Handler) Handle(c *gin.Context) {
	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.WarnTag("WS", "upgrade failed: %v", err)
		}
		return
	}

	conn := NewConnection(uuid.New().String(), socket)
	h.hub.Register(conn)
	if h.logger != nil {
		h.logger.InfoTag("WS", "client %s connected (%d active)", conn.ID(), h.hub.Count())
	}

	if h.state != nil {
		snapshot := h.state.Snapshot()
		conn.Enqueue(Event{Type: "status", Data: snapshot})
		if snapshot.LastAnswer != "" {
			conn.Enqueue(Event{Type: "answer", Data: map[string]string{"answer": snapshot.LastAnswer}})
		}
	}

	go h.readLoop(conn)
}

// readLoop discards client messages; its only job is noticing the close.
func (h *Handler) readLoop(conn *Connection) {
	defer func() {
		h.hub.Unregister(conn.ID())
		if h.logger != nil {
			h.logger.InfoTag("WS", "client %s disconnected (%d active)", conn.ID(), h.hub.Count())
		}
	}()

	for {
		if _, _, err := conn.socket.ReadMessage(); err != nil {
			return
		}
		conn.touch()
	}
}
