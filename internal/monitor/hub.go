package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/conformer/internal/logging"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/gorilla/websocket"
)

const writeWait = time.Second

// Event is the envelope streamed to websocket clients.
type Event struct {
	Type      domain.EventType `json:"type"`
	Method    string           `json:"method"`
	Timestamp time.Time        `json:"timestamp"`
	Index     *int             `json:"index,omitempty"`
	Kind      string           `json:"kind,omitempty"`
	Note      string           `json:"note,omitempty"`
	Tag       string           `json:"tag,omitempty"`
	Message   domain.Message   `json:"message,omitempty"`
	Raw       string           `json:"raw,omitempty"`
	BuildDir  string           `json:"build_dir,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Hub fans events out to every connected websocket client. Slow clients
// are dropped rather than allowed to stall the driver.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHub creates a Hub. Call Run to start delivering.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run delivers events until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "clients", n)

		case c := <-h.unregister:
			h.drop(c)

		case data := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					h.logger.Debug("dropping websocket client", "err", err)
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.Close()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues an event. It never blocks; events are dropped when the
// queue is full.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("failed to encode event", "err", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Debug("event queue full, dropping event", "type", ev.Type)
	}
}

// ServeHTTP upgrades the request and registers the client. Incoming client
// messages are read and discarded so close frames are processed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Hooks returns lifecycle hooks that publish every event.
func (h *Hub) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			h.Publish(sessionEvent(e))
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			h.Publish(sessionEvent(e))
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			idx := e.Index
			h.Publish(Event{Type: e.Type, Method: e.Method, Timestamp: e.Timestamp, Index: &idx, Kind: e.Kind, Note: e.Note})
		},
		OnSend: func(_ context.Context, e *domain.MessageEvent) {
			h.Publish(messageEvent(e))
		},
		OnReceive: func(_ context.Context, e *domain.MessageEvent) {
			h.Publish(messageEvent(e))
		},
	}
}

func sessionEvent(e *domain.SessionEvent) Event {
	ev := Event{Type: e.Type, Method: e.Method, Timestamp: e.Timestamp, BuildDir: e.BuildDir}
	if e.Err != nil {
		ev.Error = e.Err.Error()
	}
	return ev
}

func messageEvent(e *domain.MessageEvent) Event {
	return Event{Type: e.Type, Method: e.Method, Timestamp: e.Timestamp, Tag: e.Tag, Message: e.Message, Raw: e.Raw}
}
