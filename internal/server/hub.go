package restapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

const (
	EventJoinChat   = "join_chat"
	EventLeaveChat  = "leave_chat"
	EventNewMessage = "new_message"
	EventJoined     = "joined"
	EventLeft       = "left"
	EventError      = "error"

	readDeadline = 90 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	readLimit    = int64(4 << 10)
	sendBuffer   = 32
)

// Event is the envelope of every frame on the live channel.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type roomRequest struct {
	UserID string `json:"user_id"`
}

// NewMessageEvent is pushed to every connection that joined the user's room.
type NewMessageEvent struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Message   string           `json:"message"`
	PhotoURL  string           `json:"photo_url,omitempty"`
	Direction domain.Direction `json:"direction"`
	CreatedAt time.Time        `json:"created_at"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	// rooms is guarded by Hub.mu
	rooms map[string]struct{}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub fans persisted messages out to live websocket connections grouped by
// user id.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*wsClient]struct{}
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*wsClient]struct{}),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request. A user_id query parameter joins that room
// right away.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		debuglog.Log("websocket upgrade failed: %v\n", err)
		return
	}
	client := &wsClient{
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
		h.join(client, userID)
	}
	go h.writeLoop(client)
	go h.readLoop(client)
}

// Publish implements core.Broadcaster.
func (h *Hub) Publish(msg domain.Message) {
	frame, err := encodeEvent(EventNewMessage, NewMessageEvent{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Message:   msg.Text,
		PhotoURL:  msg.PhotoRef,
		Direction: msg.Direction,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		debuglog.Log("encode message %d: %v\n", msg.ID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[msg.UserID] {
		select {
		case client.send <- frame:
		default:
			debuglog.Log("websocket buffer full, dropping message %d for %s\n", msg.ID, msg.UserID)
		}
	}
}

// Subscribers returns how many connections joined userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) join(c *wsClient, userID string) {
	h.mu.Lock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[*wsClient]struct{})
		h.rooms[userID] = room
	}
	room[c] = struct{}{}
	c.rooms[userID] = struct{}{}
	h.mu.Unlock()
	debuglog.Debug(debuglog.Detailed, "websocket joined %s\n", userID)
}

func (h *Hub) leave(c *wsClient, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, userID)
}

func (h *Hub) leaveLocked(c *wsClient, userID string) {
	if room, ok := h.rooms[userID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, userID)
		}
	}
	delete(c.rooms, userID)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	for userID := range c.rooms {
		h.leaveLocked(c, userID)
	}
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) readLoop(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				debuglog.Debug(debuglog.Basic, "websocket read: %v\n", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))

		var req roomRequest
		if len(ev.Data) > 0 {
			_ = json.Unmarshal(ev.Data, &req)
		}
		req.UserID = strings.TrimSpace(req.UserID)

		switch ev.Event {
		case EventJoinChat, EventLeaveChat:
			if req.UserID == "" {
				h.reply(c, EventError, gin.H{"error": "user_id is required"})
				continue
			}
			if ev.Event == EventJoinChat {
				h.join(c, req.UserID)
				h.reply(c, EventJoined, req)
			} else {
				h.leave(c, req.UserID)
				h.reply(c, EventLeft, req)
			}
		default:
			h.reply(c, EventError, gin.H{"error": "unknown event " + ev.Event})
		}
	}
}

func (h *Hub) reply(c *wsClient, event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	case <-c.done:
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Data: raw})
}
