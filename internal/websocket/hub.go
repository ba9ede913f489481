package websocket

import (
	"sync"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/game"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub tracks live connections and hands them the room registry.
type Hub struct {
	registry *game.Registry
	cfg      config.WebSocketConfig
	log      *zap.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub(registry *game.Registry, cfg config.WebSocketConfig, log *zap.Logger) *Hub {
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	return &Hub{
		registry:   registry,
		cfg:        cfg,
		log:        log.Named("hub"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.stopped {
				client.Close()
			} else {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()
		}
	}
}

// Stop closes every connection and waits for Run to exit.
// It is safe to call more than once and from several goroutines.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Serve registers an upgraded connection for who and starts its pumps.
func (h *Hub) Serve(conn *websocket.Conn, who game.Identity) *Client {
	client := NewClient(h, conn, who)
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
		conn.Close()
		return client
	}

	go client.WritePump()
	go client.ReadPump()
	return client
}

// Unregister drops a client. It never blocks once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
