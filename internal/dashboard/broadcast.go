package dashboard

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"finflow/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served to operators on trusted networks.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub tracks websocket subscribers and fans summary snapshots out to them.
// Writes happen only from the broadcast loop, so each connection needs no
// per-connection writer goroutine.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	log   *logger.Log
}

func newHub() *hub {
	return &hub{
		conns: make(map[*websocket.Conn]struct{}),
		log:   logger.GetLogger(),
	}
}

func (h *hub) handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithComponent("dashboard").WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Drain control frames and detect disconnects. Client messages carry no
	// meaning; the socket is push-only.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *hub) empty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns) == 0
}

// broadcast sends the snapshot to every subscriber, dropping connections
// that fail to accept the write.
func (h *hub) broadcast(payload interface{}) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.remove(conn)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
	h.mu.Unlock()
}
