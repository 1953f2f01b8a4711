package app

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const writeWait = time.Second

// hub fans telemetry out to websocket clients.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	log     *slog.Logger
}

func newHub(log *slog.Logger) *hub {
	return &hub{clients: map[*websocket.Conn]bool{}, log: log}
}

// handleWS upgrades the request and registers the client. Incoming messages
// are discarded; the read loop only detects the client going away.
func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("websocket client connected", "remote", r.RemoteAddr, "clients", n)

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.Close(); err != nil {
		h.log.Debug("websocket close", "err", err)
	}
}

// broadcast sends msg to every client, dropping those that fail.
func (h *hub) broadcast(msg string) {
	h.mu.Lock()
	var failed []*websocket.Conn
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			failed = append(failed, c)
		}
	}
	h.mu.Unlock()
	for _, c := range failed {
		h.drop(c)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.drop(c)
	}
}
