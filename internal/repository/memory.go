package repository

import (
	"context"
	"sync"
	"time"

	"portfolio-site/internal/domain"
)

type memoryConversation struct {
	turns    []domain.Message
	lastSeen time.Time
}

// MemoryStore is a process-local conversation store for the development
// server. Conversations idle longer than the TTL are dropped on access.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	convs map[string]*memoryConversation
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = ttlDuration
	}
	return &MemoryStore{
		ttl:   ttl,
		now:   time.Now,
		convs: make(map[string]*memoryConversation),
	}
}

func (s *MemoryStore) GetHistory(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.lookup(conversationID)
	if c == nil {
		return nil, nil
	}
	turns := c.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]domain.Message, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) GetConversationTurnCount(_ context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.lookup(conversationID)
	if c == nil {
		return 0, nil
	}
	return len(c.turns), nil
}

func (s *MemoryStore) SaveCompletedTurn(_ context.Context, conversationID, question, answer string, sources, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c := s.lookup(conversationID)
	if c == nil {
		c = &memoryConversation{}
		s.convs[conversationID] = c
	}
	c.turns = append(c.turns, newMessage(now, conversationID, question, answer, sources))
	c.lastSeen = now
	return nil
}

func (s *MemoryStore) lookup(conversationID string) *memoryConversation {
	c, ok := s.convs[conversationID]
	if !ok {
		return nil
	}
	if s.now().Sub(c.lastSeen) > s.ttl {
		delete(s.convs, conversationID)
		return nil
	}
	return c
}
