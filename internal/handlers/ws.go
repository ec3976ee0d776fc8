package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/taskboard/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Event is pushed to every connection watching a project.
type Event struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	ProjectID string `json:"projectId"`
}

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub fans project change notifications out to connected clients.
type Hub struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub accepts upgrades from the given origins. An empty list accepts
// same-host requests only.
func NewHub(origins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		projects: make(map[uuid.UUID]map[*client]struct{}),
		logger:   logger,
	}

	if len(origins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}

	return h
}

func (h *Hub) register(projectID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.projects[projectID] == nil {
		h.projects[projectID] = make(map[*client]struct{})
	}
	h.projects[projectID][c] = struct{}{}
}

func (h *Hub) unregister(projectID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.projects[projectID]; exists {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.projects, projectID)
		}
	}
}

// Connections reports how many clients are watching a project.
func (h *Hub) Connections(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projects[projectID])
}

// BroadcastRefresh tells every client watching the project to reload it.
// Clients that cannot be written to are dropped.
func (h *Hub) BroadcastRefresh(projectID uuid.UUID, message string) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.projects[projectID]))
	for c := range h.projects[projectID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	event := Event{Type: "refresh", Message: message, ProjectID: projectID.String()}

	for _, c := range clients {
		if err := c.write(event); err != nil {
			h.logger.Warn("websocket broadcast failed", "project_id", projectID, "error", err)
			h.unregister(projectID, c)
			c.conn.Close()
		}
	}
}

// Serve upgrades the request and keeps the connection registered until the
// peer goes away. Mounted behind a read permission check on the project.
func (h *Hub) Serve(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "project_id", projectID, "error", err)
		return
	}

	c := &client{conn: conn}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.register(projectID, c)

	done := make(chan struct{})
	defer func() {
		close(done)
		h.unregister(projectID, c)
		conn.Close()
		h.logger.Debug("websocket connection closed", "project_id", projectID)
	}()

	err = c.write(Event{
		Type:      "connected",
		Message:   "WebSocket connection established",
		ProjectID: projectID.String(),
	})
	if err != nil {
		h.logger.Warn("websocket welcome failed", "project_id", projectID, "error", err)
		return
	}

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", "project_id", projectID, "error", err)
			}
			return
		}
	}
}

func (h *Handler) WebSocket(ctx *gin.Context) {
	h.hub.Serve(ctx)
}
