package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fitlink/chat-broker/internal/config"
	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/pkg/log"
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Client is one WebSocket connection. ReadPump and WritePump each run on
// their own goroutine.
type Client struct {
	session *domain.Session
	conn    *websocket.Conn
	send    chan []byte
	config  config.WebSocketConfig
	closed  bool
	mu      sync.Mutex
}

// NewClient wraps an upgraded connection. The client is identified by its
// session id.
func NewClient(session *domain.Session, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	size := cfg.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Client{
		session: session,
		conn:    conn,
		send:    make(chan []byte, size),
		config:  cfg,
	}
}

func (c *Client) ID() string {
	return c.session.ID
}

func (c *Client) Session() *domain.Session {
	return c.session
}

func (c *Client) Deliver(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the
// socket. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails and hands each one to
// handle. Frames are handled one at a time, in arrival order.
func (c *Client) ReadPump(ctx context.Context, handle func(context.Context, []byte)) {
	l := log.Ctx(ctx)

	if c.config.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.config.MaxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		c.session.UpdateActivity()
		handle(ctx, message)
	}
}

// WritePump drains the send buffer to the socket and pings on an interval.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
