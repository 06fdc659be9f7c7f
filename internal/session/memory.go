package session

import (
	"context"
	"sync"
	"time"

	"github.com/voyagechat/backend/internal/metrics"
	"github.com/voyagechat/backend/internal/model/chat"
)

// MemoryStore implements Store with mutex-guarded in-process maps. It is the
// default backend; state does not survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*memorySession
	maxHistory  int
	ttl         time.Duration
	maxSessions int

	now func() time.Time
}

type memorySession struct {
	messages []chat.Message
	touched  time.Time
}

// NewMemoryStore builds an in-memory history store from cfg.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*memorySession),
		maxHistory:  cfg.MaxHistory,
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		now:         time.Now,
	}
}

// History returns a copy of the session's messages. An unknown or expired
// session yields an empty history and does not create state.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		return []chat.Message{}, nil
	}

	copied := make([]chat.Message, len(sess.messages))
	copy(copied, sess.messages)
	return copied, nil
}

// Append adds msg and trims the history to the window.
func (s *MemoryStore) Append(_ context.Context, sessionID string, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		if !ok && s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
			s.evictOldestLocked()
		}
		sess = &memorySession{messages: make([]chat.Message, 0, s.maxHistory)}
		s.sessions[sessionID] = sess
	}

	sess.messages = append(sess.messages, msg)
	if over := len(sess.messages) - s.maxHistory; over > 0 {
		trimmed := make([]chat.Message, s.maxHistory)
		copy(trimmed, sess.messages[over:])
		sess.messages = trimmed
		metrics.RecordHistoryEvictions(over)
	}
	sess.touched = s.now()

	return nil
}

// Clear drops the session's history. Unknown sessions are ignored.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Stats summarizes the stored history per role.
func (s *MemoryStore) Stats(_ context.Context, sessionID string) (chat.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || s.expired(sess) {
		return chat.Stats{}, nil
	}
	return chat.CountStats(sess.messages), nil
}

// Close implements Store. The memory backend holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) expired(sess *memorySession) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(sess.touched) > s.ttl
}

// evictOldestLocked removes the least recently touched session. Caller holds
// the write lock.
func (s *MemoryStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.touched.Before(oldest) {
			oldestID = id
			oldest = sess.touched
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}
