// Package events carries UI-bound chat events over an in-process
// watermill bus. Services publish typed events; transports (the
// websocket hub) subscribe and deliver them to the right session.
package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-docchat-be/pkg/store"
)

const (
	TopicUIEvents = "chat.ui_events"

	// Metadata key used by subscribers to route without unmarshaling.
	MetadataSessionID = "session_id"
)

const (
	EventSendMessage   = "send_message"
	EventUpdateMessage = "update_message"
	EventStreamToken   = "stream_token"
)

// UIEvent is one outbound chat surface mutation: a new message, an
// in-place update to an existing one, or a single streamed token.
type UIEvent struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	MessageID string           `json:"message_id"`
	Author    string           `json:"author,omitempty"`
	Content   string           `json:"content,omitempty"`
	Token     string           `json:"token,omitempty"`
	Elements  []store.Evidence `json:"elements,omitempty"`
}

// NewBus builds the in-process pub/sub channel shared by publishers and
// the websocket hub.
func NewBus(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, logger)
}

// Publish marshals the event and puts it on the UI topic. Marshal
// failures are impossible for UIEvent, so the only error source is a
// closed bus.
func Publish(publisher message.Publisher, event UIEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataSessionID, event.SessionID)
	return publisher.Publish(TopicUIEvents, msg)
}

// Decode parses a bus message back into a UIEvent.
func Decode(msg *message.Message) (UIEvent, error) {
	var event UIEvent
	err := json.Unmarshal(msg.Payload, &event)
	return event, err
}
