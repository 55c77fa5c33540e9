package ws

import (
	"sync"

	"snapquiz-server-go/internal/domain/eventbus"
	"snapquiz-server-go/internal/platform/logging"
)

// Event is the envelope pushed to every connected browser page.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks the connected clients and fans pipeline events out to them.
type Hub struct {
	logger *logging.Logger
	bus    *eventbus.Bus
	conns  sync.Map // map[string]*Connection

	onStatus func(eventbus.StatusEvent)
	onAnswer func(eventbus.AnswerEvent)
	onFrame  func(eventbus.FrameEvent)
}

// NewHub builds a hub subscribed to the pipeline topics. Call Close to
// detach from the bus and drop every client.
func NewHub(bus *eventbus.Bus, logger *logging.Logger) (*Hub, error) {
	h := &Hub{
		logger: logger,
		bus:    bus,
	}

	h.onStatus = func(ev eventbus.StatusEvent) { h.Broadcast(Event{Type: "status", Data: ev}) }
	h.onAnswer = func(ev eventbus.AnswerEvent) { h.Broadcast(Event{Type: "answer", Data: ev}) }
	h.onFrame = func(ev eventbus.FrameEvent) { h.Broadcast(Event{Type: "frame", Data: ev}) }

	if bus != nil {
		if err := bus.SubscribeStatus(h.onStatus); err != nil {
			return nil, err
		}
		if err := bus.SubscribeAnswer(h.onAnswer); err != nil {
			return nil, err
		}
		if err := bus.SubscribeFrame(h.onFrame); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Register adds a new connection to the hub and starts its writer.
func (h *Hub) Register(conn *Connection) {
	if conn == nil {
		return
	}
	h.conns.Store(conn.ID(), conn)
	go conn.writePump()
}

// Unregister removes and closes the connection.
func (h *Hub) Unregister(id string) {
	if value, ok := h.conns.LoadAndDelete(id); ok {
		if conn, ok := value.(*Connection); ok {
			_ = conn.Close()
		}
	}
}

// Broadcast queues one event for every client. It never blocks: a client
// whose queue is full is treated as stalled and dropped, so a dead peer can
// never slow the pipeline that publishes these events.
func (h *Hub) Broadcast(ev Event) {
	h.conns.Range(func(key, value any) bool {
		conn, ok := value.(*Connection)
		if !ok {
			return true
		}
		if !conn.Enqueue(ev) {
			if h.logger != nil {
				h.logger.DebugTag("WS", "dropping stalled client %s", conn.ID())
			}
			h.Unregister(conn.ID())
		}
		return true
	})
}

// Count reports the number of connected clients.
func (h *Hub) Count() int {
	n := 0
	h.conns.Range(func(key, value any) bool {
		n++
		return true
	})
	return n
}

// Close detaches from the event bus and closes every client.
func (h *Hub) Close() {
	if h.bus != nil {
		_ = h.bus.UnsubscribeStatus(h.onStatus)
		_ = h.bus.UnsubscribeAnswer(h.onAnswer)
		_ = h.bus.UnsubscribeFrame(h.onFrame)
	}
	h.conns.Range(func(key, value any) bool {
		if conn, ok := value.(*Connection); ok {
			_ = conn.Close()
		}
		h.conns.Delete(key)
		return true
	})
}
