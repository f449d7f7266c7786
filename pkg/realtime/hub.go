package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// DefaultSendBuffer is the number of events queued per client before
	// new events for that client are dropped.
	DefaultSendBuffer = 64

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	// CloseMessageCode is sent to clients when the hub shuts down.
	CloseMessageCode = websocket.CloseGoingAway
)

type Option func(h *Hub)

// WithSendBuffer sets the per-client queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithCheckOrigin replaces the origin check of the websocket upgrade. By
// default every origin is accepted.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// Hub manages websocket subscribers grouped by room.
type Hub struct {
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     zerolog.Logger

	roomsLock sync.RWMutex
	rooms     map[string]map[*client]struct{}
}

var _ Broadcaster = (*Hub)(nil)

type client struct {
	conn      *websocket.Conn
	room      string
	userID    uint
	send      chan []byte
	closeOnce sync.Once
}

// NewHub creates a Hub that logs to log.
func NewHub(log zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sendBuffer: DefaultSendBuffer,
		logger:     log.With().Str("component", "realtime").Logger(),
		rooms:      make(map[string]map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve upgrades the request and subscribes the connection to the room of
// appID. It returns once the connection is registered; the pumps run until
// the client goes away or the hub is closed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, appID, userID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		conn:   conn,
		room:   Room(appID),
		userID: userID,
		send:   make(chan []byte, h.sendBuffer),
	}
	h.register(c)
	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Broadcast sends event to every subscriber of the app. Subscribers whose
// queue is full miss the event.
func (h *Hub) Broadcast(appID uint, event Event) {
	event.AppID = appID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("marshal event")
		return
	}

	room := Room(appID)
	h.roomsLock.RLock()
	defer h.roomsLock.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().
				Str("room", room).
				Uint("user_id", c.userID).
				Str("type", event.Type).
				Msg("Event dropped: subscriber queue full")
		}
	}
}

// Subscribers returns the number of connections in the room of appID.
func (h *Hub) Subscribers(appID uint) int {
	h.roomsLock.RLock()
	defer h.roomsLock.RUnlock()
	return len(h.rooms[Room(appID)])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.roomsLock.Lock()
	var all []*client
	for room, members := range h.rooms {
		for c := range members {
			all = append(all, c)
		}
		delete(h.rooms, room)
	}
	h.roomsLock.Unlock()

	for _, c := range all {
		c.stop()
	}
}

func (h *Hub) register(c *client) {
	h.roomsLock.Lock()
	defer h.roomsLock.Unlock()
	members, ok := h.rooms[c.room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[c.room] = members
	}
	members[c] = struct{}{}
	h.logger.Debug().Str("room", c.room).Uint("user_id", c.userID).Msg("subscriber joined")
}

func (h *Hub) unregister(c *client) {
	h.roomsLock.Lock()
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	h.roomsLock.Unlock()
	c.stop()
	h.logger.Debug().Str("room", c.room).Uint("user_id", c.userID).Msg("subscriber left")
}

// stop closes the send queue, which makes the write pump say goodbye and
// close the connection. It must only run after the client left its room.
func (c *client) stop() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseMessageCode, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; clients do not send events.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("room", c.room).Msg("subscriber read failed")
			}
			return
		}
	}
}
