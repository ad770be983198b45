package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/folio/internal/browse"
	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/unread"
)

const (
	liveWriteWait  = 10 * time.Second
	liveSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveMessage is the outgoing WebSocket message format.
type liveMessage struct {
	Type           string `json:"type"` // "reload", "notice" or "dismiss"
	Section        string `json:"section,omitempty"`
	Count          int    `json:"count,omitempty"`
	Message        string `json:"message,omitempty"`
	DismissAfterMS int64  `json:"dismiss_after_ms,omitempty"`
}

// liveRequest is the incoming WebSocket message format. A page sends "view"
// once connected to say what it shows.
type liveRequest struct {
	Type     string `json:"type"`
	Section  string `json:"section"`
	Category string `json:"category"`
}

type liveClient struct {
	conn     *websocket.Conn
	send     chan liveMessage
	done     chan struct{}
	tracker  *unread.Tracker
	notifier *unread.Notifier

	mu       sync.Mutex
	section  string
	category string
}

func newLiveClient(conn *websocket.Conn, tracker *unread.Tracker) *liveClient {
	c := &liveClient{
		conn:    conn,
		send:    make(chan liveMessage, liveSendBuffer),
		done:    make(chan struct{}),
		tracker: tracker,
	}
	c.notifier = unread.NewNotifier(
		func(n unread.Notice) {
			c.push(liveMessage{Type: "notice", Count: n.Count, Message: n.Message, DismissAfterMS: n.Millis()})
		},
		func() { c.push(liveMessage{Type: "dismiss"}) },
	)
	return c
}

// push queues m without blocking; a client that stops reading loses messages.
func (c *liveClient) push(m liveMessage) {
	select {
	case <-c.done:
	case c.send <- m:
	default:
		logging.Warn("live client is not keeping up, dropping message", "type", m.Type)
	}
}

func (c *liveClient) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case m := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteJSON(m); err != nil {
				logging.Debug("live write", "err", err)
				c.conn.Close()
				return
			}
		}
	}
}

func (c *liveClient) setView(section, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.section, c.category = section, browse.NormalizeCategory(category)
}

func (c *liveClient) view() (section, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.section, c.category
}

// hub tracks the open live connections.
type hub struct {
	mu      sync.Mutex
	clients map[*liveClient]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*liveClient]bool)}
}

func (h *hub) add(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *hub) remove(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *hub) snapshot() []*liveClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*liveClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *hub) closeAll() {
	for _, c := range h.snapshot() {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	// The tracker reads the visitor's cookies before the connection is hijacked.
	tracker := s.tracker(w, r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	c := newLiveClient(conn, tracker)
	s.hub.add(c)
	defer s.hub.remove(c)
	defer close(c.done)
	defer c.notifier.Stop()
	go c.writeLoop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn("websocket read", "err", err)
			}
			return
		}

		var req liveRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			logging.Debug("invalid live message", "err", err)
			continue
		}
		if req.Type != "view" {
			continue
		}
		if _, ok := s.byName[req.Section]; !ok {
			continue
		}
		// The page already rendered its notice; later ones come with reloads.
		c.setView(req.Section, req.Category)
	}
}

// broadcastReload tells every client that a section changed and refreshes
// the unread notice of the clients viewing it.
func (s *Server) broadcastReload(ctx context.Context, name string) {
	for _, c := range s.hub.snapshot() {
		c.push(liveMessage{Type: "reload", Section: name})
		if sec, _ := c.view(); sec == name {
			s.pushNotice(ctx, c)
		}
	}
}

// pushNotice counts the unread items of the client's filtered view and
// shows the notice, scheduling its dismissal.
func (s *Server) pushNotice(ctx context.Context, c *liveClient) {
	name, category := c.view()
	sec, ok := s.byName[name]
	if !ok {
		return
	}
	idx, err := sec.index()
	if err != nil {
		return
	}
	items := content.CloneAll(browse.Filter(idx.Items(), category, ""))
	notice, err := c.tracker.Annotate(ctx, items)
	if err != nil {
		logging.Warn("reading last visit", "err", err)
		return
	}
	c.notifier.Trigger(notice)
}
