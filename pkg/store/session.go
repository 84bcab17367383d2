package store

import (
	"context"
	"sync"
	"time"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/pkg/llm"
)

// Chunk is the atomic unit of embedding and retrieval. IDs are assigned
// by ingestion order across all uploaded files and never change for the
// session's lifetime; they join an index hit back to displayable text.
type Chunk struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	SourceDocument string `json:"source_document"`
}

// Evidence is an inspectable source excerpt attached to a grounded answer.
type Evidence struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// QueryHit is one nearest-neighbor result, ranked by similarity.
type QueryHit struct {
	ChunkID string
	Score   float32
}

// DocumentIndex supports similarity search over embedded chunks.
type DocumentIndex interface {
	Query(ctx context.Context, text string, k int) ([]QueryHit, error)
}

// Session is the per-connection conversation state: ordered message
// history (the first entry is always the system directive), and in RAG
// mode a document index plus the chunk records backing it. Sessions are
// never shared across connections.
type Session struct {
	ID        string
	CreatedAt time.Time

	// flow serializes operations: at most one in-flight question or
	// ingestion per session; later requests queue behind it.
	flow sync.Mutex

	mu        sync.RWMutex
	history   []llm.Message
	index     DocumentIndex
	chunks    []Chunk
	chunkByID map[string]int
}

func NewSession(id, systemMessage string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		history:   []llm.Message{{Role: constant.ChatMessageRoleSystem, Content: systemMessage}},
	}
}

// FlowLock acquires the session's single-flight lock.
func (s *Session) FlowLock() { s.flow.Lock() }

func (s *Session) FlowUnlock() { s.flow.Unlock() }

func (s *Session) AppendMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, llm.Message{Role: role, Content: content})
}

// History returns a copy to keep callers from mutating shared state.
func (s *Session) History() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// SetIndex installs the index and its chunk records in one step, so a
// concurrent query never observes the index without its chunks.
func (s *Session) SetIndex(index DocumentIndex, chunks []Chunk) {
	byID := make(map[string]int, len(chunks))
	for i, chunk := range chunks {
		byID[chunk.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = index
	s.chunks = chunks
	s.chunkByID = byID
}

func (s *Session) Index() DocumentIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Session) HasIndex() bool {
	return s.Index() != nil
}

func (s *Session) Chunks() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func (s *Session) ChunkByID(id string) (Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.chunkByID[id]
	if !ok {
		return Chunk{}, false
	}
	return s.chunks[i], true
}
