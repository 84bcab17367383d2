package websocket

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"ai-docchat-be/internal/events"
	"ai-docchat-be/internal/pkg/logger"
)

// Hub routes UI events from the in-process bus to websocket clients.
// Each client is one session; sessions never share a connection.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	subscriber message.Subscriber
	logger     logger.ILogger

	// Invoked after a client disconnects so per-session state is torn
	// down with the connection.
	onDisconnect func(sessionID string)
}

func NewHub(subscriber message.Subscriber, log logger.ILogger, onDisconnect func(sessionID string)) *Hub {
	return &Hub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		clients:      make(map[string]*Client),
		subscriber:   subscriber,
		logger:       log,
		onDisconnect: onDisconnect,
	}
}

// Run owns the client map and pumps bus events to connections. Blocks
// until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	messages, err := h.subscriber.Subscribe(ctx, events.TopicUIEvents)
	if err != nil {
		h.logger.Error("Hub", "Failed to subscribe to UI events", map[string]interface{}{"error": err.Error()})
		return
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.SessionID]; ok && current == client {
				delete(h.clients, client.SessionID)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"session_id": client.SessionID})
			if h.onDisconnect != nil {
				h.onDisconnect(client.SessionID)
			}

		case msg, ok := <-messages:
			if !ok {
				return
			}
			h.deliver(msg)
			msg.Ack()

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) deliver(msg *message.Message) {
	sessionID := msg.Metadata.Get(events.MetadataSessionID)

	h.mu.RLock()
	client, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		// Session already disconnected; the event has no other target.
		return
	}

	select {
	case client.Send <- msg.Payload:
	default:
		h.logger.Warn("Hub", "Client send buffer full, dropping event", map[string]interface{}{"session_id": sessionID})
	}
}
