package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"
)

type notifierCall struct {
	Method    string
	SessionID string
	MessageID string
	Author    string
	Content   string
	Token     string
	Elements  []store.Evidence
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	next  int
}

func (f *fakeNotifier) SendMessage(sessionID, author, content string, elements []store.Evidence) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := string(rune('a' + f.next - 1))
	f.calls = append(f.calls, notifierCall{
		Method: "send", SessionID: sessionID, MessageID: id,
		Author: author, Content: content, Elements: elements,
	})
	return id
}

func (f *fakeNotifier) UpdateMessage(sessionID, messageID, content string, elements []store.Evidence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifierCall{
		Method: "update", SessionID: sessionID, MessageID: messageID,
		Content: content, Elements: elements,
	})
}

func (f *fakeNotifier) StreamToken(sessionID, messageID, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifierCall{
		Method: "token", SessionID: sessionID, MessageID: messageID, Token: token,
	})
}

func (f *fakeNotifier) Calls() []notifierCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifierCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// scriptedChat replays a fixed reply, streamed as the given events.
type scriptedChat struct {
	reply        string
	streamEvents []llm.StreamEvent
	streamErr    error
	openErr      error
}

func (c *scriptedChat) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return c.reply, nil
}

func (c *scriptedChat) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Stream, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	stream := llm.NewStream(len(c.streamEvents) + 1)
	for _, event := range c.streamEvents {
		switch event.Type {
		case llm.EventDelta:
			stream.EmitDelta(event.Delta)
		case llm.EventRestart:
			stream.EmitRestart()
		}
	}
	stream.Close(c.streamErr)
	return stream, nil
}

type stubIndex struct{ hits []store.QueryHit }

func (s stubIndex) Query(ctx context.Context, text string, k int) ([]store.QueryHit, error) {
	return s.hits, nil
}

func newChatService(chat llm.ChatProvider) (IChatService, *memory.SessionRepository, *fakeNotifier) {
	repo := memory.NewSessionRepository()
	notifier := &fakeNotifier{}
	cfg := &config.Config{}
	cfg.OpenAI.SystemMessage = "You are a helpful assistant."
	svc := NewChatService(repo, chat, rag.NewEngine(chat, 4, false), notifier, cfg, logger.NopLogger{})
	return svc, repo, notifier
}

func TestStartSessionSeedsHistory(t *testing.T) {
	svc, repo, _ := newChatService(&scriptedChat{})

	session, err := svc.StartSession(context.Background())
	require.NoError(t, err)

	saved, ok := repo.Get(session.ID)
	require.True(t, ok)
	history := saved.History()
	require.Len(t, history, 1)
	assert.Equal(t, constant.ChatMessageRoleSystem, history[0].Role)
	assert.Equal(t, "You are a helpful assistant.", history[0].Content)
}

func TestHandleMessagePlainChatStreams(t *testing.T) {
	chat := &scriptedChat{streamEvents: []llm.StreamEvent{
		{Type: llm.EventDelta, Delta: "Hello"},
		{Type: llm.EventDelta, Delta: " world"},
	}}
	svc, repo, notifier := newChatService(chat)
	session, _ := svc.StartSession(context.Background())

	svc.HandleMessage(context.Background(), session.ID, "hi")

	calls := notifier.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "send", calls[0].Method)
	assert.Equal(t, constant.AuthorChatbot, calls[0].Author)
	assert.Equal(t, "token", calls[1].Method)
	assert.Equal(t, "Hello", calls[1].Token)
	assert.Equal(t, "token", calls[2].Method)
	assert.Equal(t, "update", calls[3].Method)
	assert.Equal(t, "Hello world", calls[3].Content)
	assert.Equal(t, calls[0].MessageID, calls[3].MessageID)

	saved, _ := repo.Get(session.ID)
	history := saved.History()
	require.Len(t, history, 3)
	assert.Equal(t, "hi", history[1].Content)
	assert.Equal(t, "Hello world", history[2].Content)
}

func TestHandleMessageRestartResetsReply(t *testing.T) {
	chat := &scriptedChat{streamEvents: []llm.StreamEvent{
		{Type: llm.EventDelta, Delta: "Hel"},
		{Type: llm.EventRestart},
		{Type: llm.EventDelta, Delta: "Hello world"},
	}}
	svc, repo, notifier := newChatService(chat)
	session, _ := svc.StartSession(context.Background())

	svc.HandleMessage(context.Background(), session.ID, "hi")

	calls := notifier.Calls()
	// send, token, restart update, token, final update
	require.Len(t, calls, 5)
	assert.Equal(t, "update", calls[2].Method)
	assert.Equal(t, "", calls[2].Content)
	assert.Equal(t, "Hello world", calls[4].Content)

	saved, _ := repo.Get(session.ID)
	assert.Equal(t, "Hello world", saved.History()[2].Content)
}

func TestHandleMessageStreamFailure(t *testing.T) {
	chat := &scriptedChat{
		streamEvents: []llm.StreamEvent{{Type: llm.EventDelta, Delta: "partial"}},
		streamErr:    errors.New("all retries failed"),
	}
	svc, repo, notifier := newChatService(chat)
	session, _ := svc.StartSession(context.Background())

	svc.HandleMessage(context.Background(), session.ID, "hi")

	calls := notifier.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "send", last.Method)
	assert.Equal(t, constant.AuthorError, last.Author)
	assert.Contains(t, last.Content, "all retries failed")

	// Failed turns leave no assistant entry.
	saved, _ := repo.Get(session.ID)
	assert.Len(t, saved.History(), 2)
}

func TestHandleMessageGroundedMode(t *testing.T) {
	chat := &scriptedChat{reply: "Grounded answer\nSOURCES: 0-pl"}
	svc, repo, notifier := newChatService(chat)
	session, _ := svc.StartSession(context.Background())

	stored, _ := repo.Get(session.ID)
	chunks := []store.Chunk{{ID: "0-pl", Text: "chunk text", SourceDocument: "a.pdf"}}
	stored.SetIndex(stubIndex{hits: []store.QueryHit{{ChunkID: "0-pl"}}}, chunks)

	svc.HandleMessage(context.Background(), session.ID, "what does the document say?")

	calls := notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, constant.AuthorChatbot, calls[0].Author)
	assert.Equal(t, "Grounded answer\nSources: 0-pl", calls[0].Content)
	require.Len(t, calls[0].Elements, 1)
	assert.Equal(t, "chunk text", calls[0].Elements[0].Text)

	assert.Equal(t, "Grounded answer\nSources: 0-pl", stored.History()[2].Content)
}

func TestHandleMessageUnknownSession(t *testing.T) {
	svc, _, notifier := newChatService(&scriptedChat{})

	svc.HandleMessage(context.Background(), "missing", "hi")

	calls := notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, constant.AuthorError, calls[0].Author)
}

func TestEndSessionDestroysState(t *testing.T) {
	svc, repo, _ := newChatService(&scriptedChat{})
	session, _ := svc.StartSession(context.Background())

	svc.EndSession(session.ID)

	_, ok := repo.Get(session.ID)
	assert.False(t, ok)
}
