package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Store holds the dashboard sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a new session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session with a random id.
func (s *Store) Create() *Session {
	b := make([]byte, 16)
	rand.Read(b)

	now := time.Now().Unix()
	sess := &Session{
		ID:           hex.EncodeToString(b),
		RegisteredAt: now,
		LastSeenAt:   now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get retrieves a session by id and marks it as seen.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.LastSeenAt = time.Now().Unix()
	return sess, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PruneStaleSessions removes sessions that haven't been seen for a duration.
func (s *Store) PruneStaleSessions(timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Unix()
	count := 0
	timeoutSec := int64(timeout.Seconds())

	for id, sess := range s.sessions {
		if now-sess.LastSeenAt > timeoutSec {
			sess.Close()
			delete(s.sessions, id)
			count++
		}
	}
	return count
}

// StartCleanupLoop starts a background goroutine to prune stale sessions.
func (s *Store) StartCleanupLoop(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.PruneStaleSessions(timeout)
			case <-ctx.Done():
				return
			}
		}
	}()
}
