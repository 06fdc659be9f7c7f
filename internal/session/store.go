package session

import (
	"context"
	"time"

	"github.com/voyagechat/backend/internal/model/chat"
)

// Backend identifiers accepted by New.
const (
	MemoryBackend = "memory"
	RedisBackend  = "redis"
)

// Store keeps per-session conversation history inside a sliding window.
// Sessions are created lazily: History and Stats treat an unknown session as
// empty, Append materializes it, and Clear of an unknown session is a no-op.
// After every Append the history is trimmed to the configured maximum by
// dropping the oldest messages, so a history never exceeds the window.
type Store interface {
	// History returns a copy of the stored messages in insertion order.
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
	// Append adds one message and evicts the oldest entries beyond the window.
	Append(ctx context.Context, sessionID string, msg chat.Message) error
	// Clear removes the session's history. Clearing twice is not an error.
	Clear(ctx context.Context, sessionID string) error
	// Stats summarizes the stored history per role.
	Stats(ctx context.Context, sessionID string) (chat.Stats, error)
	// Close releases backend resources.
	Close() error
}

// Config selects and tunes a history backend.
type Config struct {
	// Backend is "memory" or "redis". Empty selects memory.
	Backend string
	// MaxHistory is the sliding window size in messages. Must be positive.
	MaxHistory int
	// TTL expires idle sessions. Zero keeps sessions until cleared.
	TTL time.Duration
	// MaxSessions caps concurrently tracked sessions in the memory backend,
	// evicting the least recently touched one. Zero means unbounded.
	MaxSessions int
	// Redis configures the redis backend.
	Redis RedisConfig
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}
