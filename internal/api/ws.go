package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/citybuilder/internal/world"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Socket message types.
const (
	MsgSelectTool    = "select_tool"
	MsgPlaceBuilding = "place_building"
	MsgReset         = "reset"
	MsgGetState      = "get_state"

	MsgState = "state"
	MsgError = "error"
)

// Envelope wraps every socket message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SelectToolPayload is the payload of select_tool.
type SelectToolPayload struct {
	Kind string `json:"kind"`
}

// PlacePayload is the payload of place_building. Both fields are required.
type PlacePayload struct {
	X *int `json:"x"`
	Z *int `json:"z"`
}

// ErrorPayload is the payload of an error reply.
type ErrorPayload struct {
	Error string `json:"error"`
}

// socket is one connected presentation client. Replies go to the sender only.
type socket struct {
	id   string
	ip   string
	conn *websocket.Conn
	send chan []byte
}

// socketSet tracks open sockets so Shutdown can close them.
type socketSet struct {
	mu    sync.Mutex
	conns map[*socket]bool
}

func newSocketSet() *socketSet {
	return &socketSet{conns: make(map[*socket]bool)}
}

func (ss *socketSet) add(c *socket) {
	ss.mu.Lock()
	ss.conns[c] = true
	ss.mu.Unlock()
}

func (ss *socketSet) remove(c *socket) {
	ss.mu.Lock()
	delete(ss.conns, c)
	ss.mu.Unlock()
}

func (ss *socketSet) count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.conns)
}

func (ss *socketSet) closeAll() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for c := range ss.conns {
		c.conn.Close()
	}
}

// checkOrigin accepts same-host pages, allowed frontends and non-browser
// clients that send no Origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &socket{
		id:   uuid.New().String(),
		ip:   clientIP(r),
		conn: conn,
		send: make(chan []byte, 64),
	}
	s.sockets.add(c)
	slog.Info("websocket client connected", "client", c.id, "ip", c.ip)

	go s.writePump(c)
	s.reply(c, MsgState, s.currentState())
	go s.readPump(c)
}

// readPump handles messages from one client until the connection fails.
func (s *Server) readPump(c *socket) {
	defer func() {
		s.sockets.remove(c)
		close(c.send)
		c.conn.Close()
		slog.Info("websocket client disconnected", "client", c.id)
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "client", c.id, "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.reply(c, MsgError, ErrorPayload{Error: "invalid envelope"})
			continue
		}
		s.dispatch(c, env)
	}
}

func (s *Server) dispatch(c *socket, env Envelope) {
	switch env.Type {
	case MsgGetState:
		s.reply(c, MsgState, s.currentState())
		return
	case MsgSelectTool, MsgPlaceBuilding, MsgReset:
	default:
		s.reply(c, MsgError, ErrorPayload{Error: "unknown message type: " + env.Type})
		return
	}

	if !s.limiter.Allow(c.ip) {
		s.reply(c, MsgError, ErrorPayload{Error: "rate limit exceeded"})
		return
	}

	switch env.Type {
	case MsgSelectTool:
		var p SelectToolPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.reply(c, MsgError, ErrorPayload{Error: "invalid select_tool payload"})
			return
		}
		s.reply(c, MsgState, s.selectTool(p.Kind))
	case MsgPlaceBuilding:
		var p PlacePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.reply(c, MsgError, ErrorPayload{Error: "invalid place_building payload"})
			return
		}
		if p.X == nil || p.Z == nil {
			s.reply(c, MsgError, ErrorPayload{Error: "x and z are required"})
			return
		}
		s.reply(c, MsgState, s.place(world.Coord{X: *p.X, Z: *p.Z}))
	case MsgReset:
		s.reply(c, MsgState, s.reset())
	}
}

// reply queues a message for c. A client too slow to drain its queue is
// disconnected.
func (s *Server) reply(c *socket, typ string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal socket payload failed", "type", typ, "error", err)
		return
	}
	b, err := json.Marshal(Envelope{Type: typ, Payload: raw})
	if err != nil {
		slog.Error("marshal socket envelope failed", "type", typ, "error", err)
		return
	}
	select {
	case c.send <- b:
	default:
		slog.Warn("websocket client too slow, closing", "client", c.id)
		c.conn.Close()
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (s *Server) writePump(c *socket) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// readPump closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
