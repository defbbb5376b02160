package ws

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is origin-agnostic; auth happens at the token level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections and registers them with the hub.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(conn)
	h.hub.Register(client)
	go client.readPump(h.hub)

	welcome := fmt.Sprintf(`{"type":"connected","clientId":%q}`, client.ID)
	client.Send <- []byte(welcome)
}
