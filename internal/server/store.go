package server

import (
	"errors"
	"sync"

	"github.com/andywolf/nebulacalc/internal/calculator"
)

// ErrTooManySessions is returned when the store is full.
var ErrTooManySessions = errors.New("too many sessions")

// Store keeps calculator sessions in memory, keyed by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*calculator.Session
	max      int
	factory  func() *calculator.Session
}

// NewStore creates a store holding at most max sessions (0 means no limit).
func NewStore(max int, factory func() *calculator.Session) *Store {
	return &Store{
		sessions: make(map[string]*calculator.Session),
		max:      max,
		factory:  factory,
	}
}

// Create adds a new session.
func (s *Store) Create() (*calculator.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.max > 0 && len(s.sessions) >= s.max {
		return nil, ErrTooManySessions
	}
	sess := s.factory()
	s.sessions[sess.ID()] = sess
	return sess, nil
}

// Get looks up a session.
func (s *Store) Get(id string) (*calculator.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
