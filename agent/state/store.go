package state

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is the conversation persistence contract used by the orchestrator.
// Load returns ErrStateNotFound for an unknown conversation id.
type Store interface {
	Load(ctx context.Context, conversationID string) (*ConversationState, error)
	Save(ctx context.Context, st *ConversationState) error
}

// InMemoryStore keeps conversation states in process memory. It backs tests
// and the demo wiring; production deployments use PostgresStore.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]*ConversationState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]*ConversationState)}
}

func (s *InMemoryStore) Load(ctx context.Context, conversationID string) (*ConversationState, error) {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return nil, ErrInvalidConvID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

func (s *InMemoryStore) Save(ctx context.Context, st *ConversationState) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.ConversationID] = st.Clone()
	return nil
}
