package tracking

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *safeConn) readMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

func (c *safeConn) close() { c.ws.Close() }

// Hub manages WebSocket watchers per booking. Owners connect to follow
// the driver's position while their trip is in progress.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
}

// NewHub creates a tracking hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*safeConn)}
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/bookings/{code}", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to a booking.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	conn := &safeConn{ws: ws}

	h.mu.Lock()
	h.conns[code] = append(h.conns[code], conn)
	h.mu.Unlock()

	log.Printf("[ws] watcher connected to booking %s", code)

	// Block until the client disconnects
	for {
		if _, _, err := conn.readMessage(); err != nil {
			break
		}
	}

	h.removeConn(code, conn)
	conn.close()
	log.Printf("[ws] watcher disconnected from booking %s", code)
}

// BroadcastLocation pushes a driver position to all watchers of a
// booking. Safe for concurrent calls; each safeConn serialises its own
// writes.
func (h *Hub) BroadcastLocation(code string, lat, lng float64) {
	h.mu.RLock()
	conns := h.conns[code]
	h.mu.RUnlock()

	msg := map[string]any{
		"booking_code": code,
		"lat":          lat,
		"lng":          lng,
		"ts":           time.Now().Unix(),
	}

	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			log.Printf("[ws] write error: %v", err)
		}
	}
}

func (h *Hub) removeConn(code string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[code]
	for i, c := range conns {
		if c == conn {
			h.conns[code] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[code]) == 0 {
		delete(h.conns, code)
	}
}
