package websocket

import (
	"fmt"
	"time"

	"chat-relay/internal/models"
	"chat-relay/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection. rooms and evicted belong to the hub loop;
// evicted holds the reason once the client's queue overflowed.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	id        models.ConnID
	readLimit int64
	rooms     map[string]bool
	evicted   error
}

func NewClient(hub *Hub, conn *websocket.Conn, sendBuffer int, readLimit int64) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		id:        models.ConnID(uuid.NewString()),
		readLimit: readLimit,
	}
}

func (c *Client) ID() models.ConnID {
	return c.id
}

// enqueue hands frame to the write pump without blocking.
func (c *Client) enqueue(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("%w: send queue of %s is full", models.ErrBackpressure, c.id)
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.readLimit)
	// Set read deadline and pong handler for connection health
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.id, err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if !c.hub.submit(c, message) {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on %s: %v", c.id, err)
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
