// Package dashboard serves the operator's live stats page: a websocket
// push of the test engine's ManagerStats snapshot, adapted from the
// teacher's global-state web.go into a Hub instance the orchestrator owns.
package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/neskk/PoGo-Proxies/internal/tester"
)

//go:embed web/template.html
var templateFS embed.FS

// Payload is one websocket message: a kind discriminator plus its body,
// mirroring the teacher's Payload struct.
type Payload struct {
	Kind string `json:"kind"`
	Body any    `json:"body"`
}

// Hub upgrades and tracks websocket clients and fans a broadcast channel
// out to all of them. The teacher kept this as package-level globals;
// here it's an instance so the orchestrator can own its lifetime and the
// package stays safe to exercise from tests.
type Hub struct {
	upgrader  websocket.Upgrader
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
}

// NewHub builds an idle Hub; call Run to start draining its broadcast
// channel and ListenAndServe to start accepting connections.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 16),
	}
}

// Publish implements tester.StatsSink: it marshals stats as a "stats"
// Payload and queues it for every connected client.
func (h *Hub) Publish(stats tester.ManagerStats) {
	body, err := json.Marshal(Payload{Kind: "stats", Body: stats})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- body:
	default:
	}
}

// Run drains the broadcast channel until done is closed, writing each
// message to every currently connected client and dropping any that
// error out.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					c.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ListenAndServe starts the dashboard's HTTP server on port, serving the
// index page and the websocket endpoint.
func (h *Hub) ListenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.serveIndex)
	mux.HandleFunc("/ws", h.wsHandler)
	return http.ListenAndServe(":"+strconv.Itoa(port), mux)
}

func (h *Hub) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *Hub) serveIndex(w http.ResponseWriter, r *http.Request) {
	t, err := template.ParseFS(templateFS, "web/template.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := t.Execute(w, fmt.Sprintf("ws://%s/ws", r.Host)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
