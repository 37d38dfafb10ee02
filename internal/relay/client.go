package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/observability"
	"inkwell/internal/validation"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer: a full blog snapshot plus the
	// envelope. JSON encoders may escape each content byte to six (\u003c).
	maxMessageSize = 6*validation.MaxContentLength + 4096

	sendBufferSize = 256
)

// Client is one relay connection: the websocket plus its outbound buffer.
type Client struct {
	// ID is the ephemeral connection identifier, unique per socket.
	ID     string
	UserID uint

	// The websocket connection. Nil in tests that only observe Send.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	relay     *Relay
	closeOnce sync.Once
}

func newClient(r *Relay, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		relay:  r,
	}
}

// ReadPump pumps frames from the websocket connection into the relay. It
// blocks until the peer goes away and then removes the client from every room.
func (c *Client) ReadPump(ctx context.Context) {
	reason := "closed"
	defer func() {
		c.relay.Disconnect(ctx, c, reason)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				reason = err.Error()
				observability.Logger.WarnContext(ctx, "relay read failed",
					slog.String("conn_id", c.ID),
					slog.Uint64("user_id", uint64(c.UserID)),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		c.relay.Handle(ctx, c, message)
	}
}

// WritePump pumps frames from the relay to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The relay closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a frame without blocking. A full buffer drops the frame.
func (c *Client) TrySend(message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			observability.RelayBackpressureDrops.WithLabelValues("closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
		observability.RelayBackpressureDrops.WithLabelValues("full").Inc()
		observability.Logger.Warn("relay send buffer full, dropped frame",
			slog.String("conn_id", c.ID),
			slog.Uint64("user_id", uint64(c.UserID)),
		)
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Send) })
}
