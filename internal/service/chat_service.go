package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/events"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"
)

type IChatService interface {
	// StartSession creates an isolated conversation seeded with the
	// system directive and returns it.
	StartSession(ctx context.Context) (*store.Session, error)

	// HandleMessage runs one user turn end to end: append to history,
	// answer in plain-chat or grounded mode, and publish the reply as
	// UI events. Turns on the same session are serialized.
	HandleMessage(ctx context.Context, sessionID, content string)

	// EndSession destroys all per-session state.
	EndSession(sessionID string)
}

type chatService struct {
	sessionRepo *memory.SessionRepository
	chat        llm.ChatProvider
	engine      *rag.Engine
	notifier    events.Notifier
	cfg         *config.Config
	logger      logger.ILogger
}

func NewChatService(
	sessionRepo *memory.SessionRepository,
	chat llm.ChatProvider,
	engine *rag.Engine,
	notifier events.Notifier,
	cfg *config.Config,
	log logger.ILogger,
) IChatService {
	return &chatService{
		sessionRepo: sessionRepo,
		chat:        chat,
		engine:      engine,
		notifier:    notifier,
		cfg:         cfg,
		logger:      log,
	}
}

func (s *chatService) StartSession(ctx context.Context) (*store.Session, error) {
	session := store.NewSession(uuid.NewString(), s.cfg.OpenAI.SystemMessage)
	s.sessionRepo.Save(session)
	s.logger.Info("ChatService", "Session started", map[string]interface{}{"session_id": session.ID})
	return session, nil
}

func (s *chatService) HandleMessage(ctx context.Context, sessionID, content string) {
	session, ok := s.sessionRepo.Get(sessionID)
	if !ok {
		s.logger.Warn("ChatService", "Message for unknown session", map[string]interface{}{"session_id": sessionID})
		s.notifier.SendMessage(sessionID, constant.AuthorError, "Session expired, please reconnect", nil)
		return
	}

	// One in-flight turn per session; later messages queue behind it.
	session.FlowLock()
	defer session.FlowUnlock()

	session.AppendMessage(constant.ChatMessageRoleUser, content)

	if session.HasIndex() {
		s.answerGrounded(ctx, session, content)
		return
	}
	s.answerStreamed(ctx, session)
}

func (s *chatService) EndSession(sessionID string) {
	s.sessionRepo.Delete(sessionID)
	s.logger.Info("ChatService", "Session ended", map[string]interface{}{"session_id": sessionID})
}

// answerGrounded answers from the uploaded documents and attaches the
// cited chunk texts as inspectable elements.
func (s *chatService) answerGrounded(ctx context.Context, session *store.Session, question string) {
	answer, err := s.engine.Ask(ctx, session, question)
	if err != nil {
		s.logger.Error("ChatService", "Grounded answer failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		s.notifier.SendMessage(session.ID, constant.AuthorError, err.Error(), nil)
		return
	}

	session.AppendMessage(constant.ChatMessageRoleAssistant, answer.Text)
	s.notifier.SendMessage(session.ID, constant.AuthorChatbot, answer.Text, answer.Evidence)
}

// answerStreamed streams a plain-chat completion token by token into a
// placeholder message, finalizing it with the assembled text.
func (s *chatService) answerStreamed(ctx context.Context, session *store.Session) {
	messageID := s.notifier.SendMessage(session.ID, constant.AuthorChatbot, "", nil)

	stream, err := s.chat.ChatStream(ctx, session.History())
	if err != nil {
		s.streamFailed(session.ID, err)
		return
	}

	var reply strings.Builder
	for event := range stream.Events() {
		switch event.Type {
		case llm.EventDelta:
			reply.WriteString(event.Delta)
			s.notifier.StreamToken(session.ID, messageID, event.Delta)
		case llm.EventRestart:
			// The attempt failed mid-flight and is being redone from
			// scratch; wipe what the user has seen so far.
			reply.Reset()
			s.notifier.UpdateMessage(session.ID, messageID, "", nil)
		}
	}
	if err := stream.Err(); err != nil {
		s.streamFailed(session.ID, err)
		return
	}

	final := reply.String()
	session.AppendMessage(constant.ChatMessageRoleAssistant, final)
	s.notifier.UpdateMessage(session.ID, messageID, final, nil)

	if s.cfg.App.Debug {
		s.logger.Debug("ChatService", "Turn completed", map[string]interface{}{
			"session_id": session.ID,
			"answer":     final,
		})
	}
}

func (s *chatService) streamFailed(sessionID string, err error) {
	s.logger.Error("ChatService", "Streamed answer failed", map[string]interface{}{
		"session_id": sessionID,
		"error":      err.Error(),
	})
	s.notifier.SendMessage(sessionID, constant.AuthorError, err.Error(), nil)
}
