package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"Draks/internal/domain/models"
	"Draks/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	clientSendSize = 16
)

// Hub fans progress events out to websocket subscribers grouped into
// rooms by job id. It implements Sink.
type Hub struct {
	log *logger.Logger

	mu    sync.RWMutex
	rooms map[string]map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty websocket hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]map[*wsClient]struct{}),
	}
}

// Join registers conn into the room for jobID and services it until the
// peer disconnects. It blocks; call it from the connection's handler
// goroutine. The hub takes ownership of conn.
func (h *Hub) Join(jobID string, conn *websocket.Conn) {
	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}

	h.mu.Lock()
	room, ok := h.rooms[jobID]
	if !ok {
		room = make(map[*wsClient]struct{})
		h.rooms[jobID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	h.readUntilClose(c)

	h.mu.Lock()
	delete(h.rooms[jobID], c)
	if len(h.rooms[jobID]) == 0 {
		delete(h.rooms, jobID)
	}
	h.mu.Unlock()
	close(c.send)
}

// Publish delivers an event to every subscriber of its job. Slow
// clients are skipped rather than blocking the publisher.
func (h *Hub) Publish(_ context.Context, ev models.ProgressEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("progress event marshal failed", logger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[ev.JobID] {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// Subscribers reports how many clients watch jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[jobID])
}

// readUntilClose drains the peer so control frames are processed. The
// client side never sends application data.
func (h *Hub) readUntilClose(c *wsClient) {
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
