package controller

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"

	"encorecrm/engine"
)

// ProgressHub fans per-lead batch results out to connected websocket
// clients so the dashboard can watch a run live.
type ProgressHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{conns: map[*websocket.Conn]struct{}{}}
}

func (h *ProgressHub) Broadcast(lr engine.LeadResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(lr); err != nil {
			log.Printf("Progress write failed, dropping client: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// HandleProgressWS registers a websocket client until it disconnects.
func (h *ProgressHub) HandleProgressWS(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		c.Close()
	}()

	// Hold the connection open; reads only to detect the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
