// Package rag answers questions grounded in the session's document index:
// retrieve the most relevant chunks, generate from a grounding prompt,
// then map the model's cited source tags back to chunk text.
package rag

import (
	"context"
	"fmt"
	"log"

	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/store"
)

// State tracks a question through the pipeline. Errored is reachable from
// any non-idle state.
type State int

const (
	StateIdle State = iota
	StateRetrieving
	StateGenerating
	StateAttributing
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateRetrieving:
		return "retrieving"
	case StateGenerating:
		return "generating"
	case StateAttributing:
		return "attributing"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Answer is the completed result: answer text with its sources line, the
// resolved tags and the evidence excerpts.
type Answer struct {
	Text     string
	Sources  []string
	Evidence []store.Evidence
}

type Engine struct {
	chat  llm.ChatProvider
	topK  int
	debug bool
}

// NewEngine builds the orchestrator. chat should already be wrapped with
// the retry-resilient client; a failed first attempt of a retriable class
// is invisible here.
func NewEngine(chat llm.ChatProvider, topK int, debug bool) *Engine {
	if topK < 1 {
		topK = 4
	}
	return &Engine{chat: chat, topK: topK, debug: debug}
}

// Ask runs one question through Retrieving -> Generating -> Attributing.
// On failure it reports upward with no partial output.
func (e *Engine) Ask(ctx context.Context, session *store.Session, question string) (*Answer, error) {
	index := session.Index()
	if index == nil {
		return nil, fmt.Errorf("no documents indexed for session %s", session.ID)
	}

	state := StateRetrieving
	hits, err := index.Query(ctx, question, e.topK)
	if err != nil {
		return nil, e.fail(state, err)
	}

	retrieved := make([]store.Chunk, 0, len(hits))
	for _, hit := range hits {
		if chunk, ok := session.ChunkByID(hit.ChunkID); ok {
			retrieved = append(retrieved, chunk)
		}
	}

	state = StateGenerating
	raw, err := e.chat.Chat(ctx, buildGroundedPrompt(retrieved, question))
	if err != nil {
		return nil, e.fail(state, err)
	}

	state = StateAttributing
	answer, sourcesField, found := splitAnswer(raw)
	if !found {
		// No SOURCES marker at all: the answer stands alone, matching
		// the behavior when the model returns an empty sources field
		// upstream.
		if e.debug {
			log.Printf("[DEBUG] RAG answer without sources marker: [%s]", answer)
		}
		return &Answer{Text: answer}, nil
	}

	attr := attribute(answer, sourcesField, session.ChunkByID)
	if e.debug {
		log.Printf("[DEBUG] Question: [%s] Answer: [%s] Sources: %v", question, attr.AnswerText, attr.Sources)
	}

	return &Answer{Text: attr.AnswerText, Sources: attr.Sources, Evidence: attr.Evidence}, nil
}

func (e *Engine) fail(state State, err error) error {
	return fmt.Errorf("rag %s: %w", state, err)
}
