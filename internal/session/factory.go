package session

import "fmt"

// New creates a history store for the configured backend.
func New(cfg Config) (Store, error) {
	if cfg.MaxHistory < 1 {
		return nil, fmt.Errorf("session window must be positive, got %d", cfg.MaxHistory)
	}

	switch cfg.Backend {
	case MemoryBackend, "":
		return NewMemoryStore(cfg), nil
	case RedisBackend:
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
