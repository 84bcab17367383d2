package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
)

// ServeWs binds one websocket connection to one session. Blocks until
// the connection drops; the hub's disconnect hook then destroys the
// session state. The context is canceled when the pump exits, ending
// any in-flight turn.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionID string, onMessage MessageHandler) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, 256),
		onMessage: onMessage,
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump(ctx)
}
