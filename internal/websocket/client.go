package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames carry a single user message.
	maxMessageSize = 64 * 1024
)

// inboundMessage is what the client sends over the socket.
type inboundMessage struct {
	Content string `json:"content"`
}

// MessageHandler consumes one user message. It may block for the length
// of a model turn; the client dispatches it off the read loop.
type MessageHandler func(ctx context.Context, sessionID, content string)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	SessionID string

	// Buffered channel of outbound event payloads.
	Send chan []byte

	onMessage MessageHandler
}

// readPump pumps user messages from the websocket connection into the
// message handler. Turn ordering is enforced by the session flow lock,
// not here.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WARN] Read error for session %s: %v", c.SessionID, err)
			}
			break
		}

		var in inboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			log.Printf("[WARN] Malformed message for session %s: %v", c.SessionID, err)
			continue
		}
		if in.Content == "" {
			continue
		}

		// Off the read loop so pings keep flowing during a long turn.
		go c.onMessage(ctx, c.SessionID, in.Content)
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
