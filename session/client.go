package session

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Client wraps one websocket connection as a router Channel.
type Client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	log    *slog.Logger
}

func NewClient(userID int64, conn *websocket.Conn, log *slog.Logger) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		log:    log,
	}
}

// Send queues msg for the write pump. Returns false when the buffer is
// full; the caller treats that as a drop, never a block.
func (c *Client) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Serve registers the client, pumps the connection until it closes, then
// unregisters. Blocks for the life of the connection.
func (c *Client) Serve(r *Router) {
	r.Register(c.userID, c)
	defer func() {
		r.Unregister(c.userID, c)
		_ = c.conn.Close()
	}()

	go c.writePump()
	c.readPump()
}

// readPump discards inbound frames; the channel is push-only. It exists to
// process pong control frames and to notice the peer going away.
func (c *Client) readPump() {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket closed unexpectedly", "user_id", c.userID, "err", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("websocket write failed", "user_id", c.userID, "err", err)
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
