package websocket

import (
	"net/http"
	"sync"

	"github.com/drujensen/tasktracker/internal/domain/entities"
	"github.com/drujensen/tasktracker/internal/domain/events"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// EventFrame is the JSON frame sent to websocket clients for every task event.
type EventFrame struct {
	Type   string         `json:"type"`
	Action string         `json:"action,omitempty"`
	ID     string         `json:"id,omitempty"`
	Task   *entities.Task `json:"task,omitempty"`
	Source string         `json:"source,omitempty"`
	Count  int            `json:"count,omitempty"`
}

// TaskEventHub streams bus events to connected websocket clients.
type TaskEventHub struct {
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	clients     map[*websocket.Conn]*sync.Mutex
	clientsMu   sync.RWMutex
	unsubscribe []func()
}

func NewTaskEventHub(bus *events.Bus, logger *zap.Logger) *TaskEventHub {
	h := &TaskEventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}

	h.unsubscribe = []func(){
		bus.SubscribeToTaskChanged(func(data events.TaskChangedEventData) {
			h.broadcast(EventFrame{Type: "task_changed", Action: string(data.Action), ID: data.TaskID, Task: data.Task})
		}),
		bus.SubscribeToTasksReplaced(func(data events.TasksReplacedEventData) {
			h.broadcast(EventFrame{Type: "tasks_replaced", Source: data.Source, Count: data.Count})
		}),
	}

	return h
}

// RegisterRoutes registers the event stream endpoint with Echo
func (h *TaskEventHub) RegisterRoutes(e *echo.Group) {
	e.GET("/tasks/events", h.HandleWebSocket)
}

// HandleWebSocket upgrades the request and keeps the client registered until
// it disconnects. Incoming messages are ignored.
func (h *TaskEventHub) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return err
	}
	defer ws.Close()

	h.clientsMu.Lock()
	h.clients[ws] = &sync.Mutex{}
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket client connected")

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, ws)
		h.clientsMu.Unlock()
		h.logger.Info("WebSocket client disconnected")
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	return nil
}

// ClientCount returns the number of connected clients.
func (h *TaskEventHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close stops listening for events and disconnects every client.
func (h *TaskEventHub) Close() {
	for _, unsubscribe := range h.unsubscribe {
		unsubscribe()
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *TaskEventHub) broadcast(frame EventFrame) {
	h.clientsMu.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for client, writeMu := range h.clients {
		clients[client] = writeMu
	}
	h.clientsMu.RUnlock()

	// Write outside of the lock to avoid holding it during network operations
	for client, writeMu := range clients {
		writeMu.Lock()
		err := client.WriteJSON(frame)
		writeMu.Unlock()
		if err != nil {
			h.logger.Warn("Failed to send WebSocket message to client, removing from clients", zap.Error(err))
			h.clientsMu.Lock()
			delete(h.clients, client)
			h.clientsMu.Unlock()
			client.Close()
		}
	}
}
