package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"predictboard/internal/board"
)

const (
	pingInterval = 45 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsClient is a single WebSocket connection managed by a Hub.
type wsClient struct {
	conn *websocket.Conn
	out  chan wsMessage
	done chan struct{}
}

// Hub tracks WebSocket clients. Each client observes the board on its own
// and is sent a freshly rendered view on connect and after every change.
type Hub struct {
	srv *DashboardServer

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub(srv *DashboardServer) *Hub {
	return &Hub{srv: srv, clients: make(map[*wsClient]struct{})}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS upgrades the request and runs the client until it disconnects
// or the board closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.srv.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &wsClient{conn: conn, out: make(chan wsMessage, 16), done: make(chan struct{})}
	h.add(c)
	defer h.remove(c)

	id, states := h.srv.board.Subscribe()
	defer h.srv.board.Unsubscribe(id)

	h.srv.log.Info("websocket client connected", "remote", r.RemoteAddr, "clients", h.Len())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(c, states)
	}()

	h.readLoop(c)
	close(c.done)
	wg.Wait()

	h.srv.log.Info("websocket client disconnected", "remote", r.RemoteAddr)
}

// writeLoop owns every write on the connection.
func (h *Hub) writeLoop(c *wsClient, states <-chan board.State) {
	// Closing unblocks readLoop when the writer gives up first.
	defer c.conn.Close()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		var msg wsMessage
		select {
		case s, ok := <-states:
			if !ok {
				// Board closed.
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeTimeout))
				return
			}
			v := h.srv.buildView(s)
			msg = wsMessage{Type: "view", View: &v}
		case msg = <-c.out:
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case <-c.done:
			return
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.srv.log.Debug("websocket write failed", "error", err)
			return
		}
	}
}

// readLoop applies client commands until the connection fails.
func (h *Hub) readLoop(c *wsClient) {
	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.reply(c, "invalid command")
			continue
		}
		if msg := h.apply(cmd); msg != "" {
			h.reply(c, msg)
		}
	}
}

// apply runs one command and returns an error message for the client, if any.
// State changes reach the client through its board subscription.
func (h *Hub) apply(cmd wsCommand) string {
	b := h.srv.board
	switch strings.ToLower(cmd.Type) {
	case "submit":
		if _, err := b.Submit(cmd.Ticker); err != nil {
			return err.Error()
		}
	case "dismiss":
		b.DismissError()
	case "theme":
		if cmd.Theme == "" {
			b.ToggleTheme()
		} else if !b.SetTheme(board.Theme(cmd.Theme)) {
			return "theme must be dark or light"
		}
	default:
		return "unknown command " + cmd.Type
	}
	return ""
}

func (h *Hub) reply(c *wsClient, msg string) {
	select {
	case c.out <- wsMessage{Type: "error", Error: msg}:
	default:
	}
}
