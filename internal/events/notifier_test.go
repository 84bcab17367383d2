package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docchat-be/pkg/store"
)

func receive(t *testing.T, messages <-chan *message.Message) UIEvent {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		event, err := Decode(msg)
		require.NoError(t, err)
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for UI event")
		return UIEvent{}
	}
}

func TestBusNotifierRoundTrip(t *testing.T) {
	bus := NewBus(watermill.NopLogger{})
	defer bus.Close()

	messages, err := bus.Subscribe(context.Background(), TopicUIEvents)
	require.NoError(t, err)

	notifier := NewBusNotifier(bus)

	messageID := notifier.SendMessage("s1", "Chatbot", "hello", []store.Evidence{{Name: "0-pl", Text: "chunk"}})
	event := receive(t, messages)
	assert.Equal(t, EventSendMessage, event.Type)
	assert.Equal(t, "s1", event.SessionID)
	assert.Equal(t, messageID, event.MessageID)
	assert.Equal(t, "Chatbot", event.Author)
	assert.Equal(t, "hello", event.Content)
	require.Len(t, event.Elements, 1)
	assert.Equal(t, "0-pl", event.Elements[0].Name)

	notifier.StreamToken("s1", messageID, "tok")
	event = receive(t, messages)
	assert.Equal(t, EventStreamToken, event.Type)
	assert.Equal(t, "tok", event.Token)

	notifier.UpdateMessage("s1", messageID, "final", nil)
	event = receive(t, messages)
	assert.Equal(t, EventUpdateMessage, event.Type)
	assert.Equal(t, "final", event.Content)
}

func TestSendMessageIDsAreUnique(t *testing.T) {
	bus := NewBus(watermill.NopLogger{})
	defer bus.Close()

	messages, err := bus.Subscribe(context.Background(), TopicUIEvents)
	require.NoError(t, err)

	notifier := NewBusNotifier(bus)
	first := notifier.SendMessage("s1", "Chatbot", "a", nil)
	second := notifier.SendMessage("s1", "Chatbot", "b", nil)
	assert.NotEqual(t, first, second)

	receive(t, messages)
	receive(t, messages)
}

func TestMessageCarriesSessionMetadata(t *testing.T) {
	bus := NewBus(watermill.NopLogger{})
	defer bus.Close()

	messages, err := bus.Subscribe(context.Background(), TopicUIEvents)
	require.NoError(t, err)

	require.NoError(t, Publish(bus, UIEvent{Type: EventSendMessage, SessionID: "s9"}))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, "s9", msg.Metadata.Get(MetadataSessionID))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for UI event")
	}
}
