package events

import (
	"log"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"ai-docchat-be/pkg/store"
)

// Notifier is the chat surface as seen by services: create a message,
// rewrite it in place, or stream a token into it. SendMessage returns
// the message id later calls refer to.
type Notifier interface {
	SendMessage(sessionID, author, content string, elements []store.Evidence) string
	UpdateMessage(sessionID, messageID, content string, elements []store.Evidence)
	StreamToken(sessionID, messageID, token string)
}

type busNotifier struct {
	publisher message.Publisher
}

func NewBusNotifier(publisher message.Publisher) Notifier {
	return &busNotifier{publisher: publisher}
}

func (n *busNotifier) SendMessage(sessionID, author, content string, elements []store.Evidence) string {
	messageID := uuid.NewString()
	n.publish(UIEvent{
		Type:      EventSendMessage,
		SessionID: sessionID,
		MessageID: messageID,
		Author:    author,
		Content:   content,
		Elements:  elements,
	})
	return messageID
}

func (n *busNotifier) UpdateMessage(sessionID, messageID, content string, elements []store.Evidence) {
	n.publish(UIEvent{
		Type:      EventUpdateMessage,
		SessionID: sessionID,
		MessageID: messageID,
		Content:   content,
		Elements:  elements,
	})
}

func (n *busNotifier) StreamToken(sessionID, messageID, token string) {
	n.publish(UIEvent{
		Type:      EventStreamToken,
		SessionID: sessionID,
		MessageID: messageID,
		Token:     token,
	})
}

func (n *busNotifier) publish(event UIEvent) {
	if err := Publish(n.publisher, event); err != nil {
		log.Printf("[WARN] Failed to publish UI event %s: %v", event.Type, err)
	}
}
