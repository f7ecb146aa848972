// Package session keeps chat transcripts in memory, keyed by id. Nothing
// survives a restart.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ai-gateway/chat-relay/internal/chat"
)

var ErrNotFound = errors.New("session not found")

type Store struct {
	mu          sync.RWMutex
	transcripts map[string]*chat.Transcript
}

func NewStore() *Store {
	return &Store{transcripts: make(map[string]*chat.Transcript)}
}

// Create starts an empty transcript and returns its id.
func (s *Store) Create(systemPrompt string) (string, *chat.Transcript) {
	id := uuid.NewString()
	t := chat.NewTranscript(systemPrompt)
	s.mu.Lock()
	s.transcripts[id] = t
	s.mu.Unlock()
	return id, t
}

func (s *Store) Get(id string) (*chat.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transcripts[id]; !ok {
		return ErrNotFound
	}
	delete(s.transcripts, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcripts)
}
