package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one authenticated websocket connection and its subscription set.
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte

	mu        sync.RWMutex
	subs      map[string]struct{}
	favorites map[string]struct{}

	// sendMu serializes sends against the channel close so a broadcast
	// racing a disconnect can never hit a closed channel.
	sendMu     sync.Mutex
	sendClosed bool
}

func newClient(id, userID string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:        id,
		userID:    userID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		subs:      make(map[string]struct{}),
		favorites: make(map[string]struct{}),
	}
}

// subscribe adds teamID to the subscription set, optionally marking it as a
// favorites-sourced entry. Explicit and favorite subscriptions share one set.
func (c *Client) subscribe(teamID string, fromFavorites bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[teamID] = struct{}{}
	if fromFavorites {
		c.favorites[teamID] = struct{}{}
	}
}

func (c *Client) unsubscribe(teamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, teamID)
	delete(c.favorites, teamID)
}

// unsubscribeFavorites removes only the favorites-sourced entries.
func (c *Client) unsubscribeFavorites() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for teamID := range c.favorites {
		delete(c.subs, teamID)
	}
	c.favorites = make(map[string]struct{})
}

func (c *Client) subscribed(teamID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subs[teamID]
	return ok
}

func (c *Client) isFavorite(teamID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.favorites[teamID]
	return ok
}

func (c *Client) subscriptionList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	teams := make([]string, 0, len(c.subs))
	for teamID := range c.subs {
		teams = append(teams, teamID)
	}
	return teams
}

// enqueue hands a message to the write pump without blocking. Messages for a
// closed connection are dropped. A full buffer means the consumer stopped
// draining; the connection is closed so one slow client can never stall
// delivery to the rest.
func (c *Client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	if c.sendClosed {
		c.sendMu.Unlock()
		return false
	}
	select {
	case c.send <- msg:
		c.sendMu.Unlock()
		return true
	default:
		c.sendMu.Unlock()
		c.hub.dropSlowClient(c)
		return false
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

// readPump consumes inbound frames until the connection errors or closes.
// It owns the unregister path.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.handleMessage(c, raw)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings. Write errors end the pump; readPump then unregisters.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
