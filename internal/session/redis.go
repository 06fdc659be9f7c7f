package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyagechat/backend/internal/logging"
	"github.com/voyagechat/backend/internal/metrics"
	"github.com/voyagechat/backend/internal/model/chat"
)

const redisKeyPrefix = "chat:history:"

// RedisStore implements Store on a redis list per session. Messages are
// JSON-encoded; the window is enforced with LTRIM after every push.
type RedisStore struct {
	client     *redis.Client
	maxHistory int
	ttl        time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logging.Infof("session store: redis backend ready (addr=%s db=%d window=%d)",
		cfg.Redis.Addr, cfg.Redis.DB, cfg.MaxHistory)

	return &RedisStore{
		client:     client,
		maxHistory: cfg.MaxHistory,
		ttl:        cfg.TTL,
	}, nil
}

func sessionKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// History returns a copy of the session's messages.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	raw, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode stored message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Append pushes msg onto the session list and trims it to the window.
func (s *RedisStore) Append(ctx context.Context, sessionID string, msg chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	key := sessionKey(sessionID)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	length := pipe.LLen(ctx, key)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append failed: %w", err)
	}

	if over := length.Val() - int64(s.maxHistory); over > 0 {
		if err := s.client.LTrim(ctx, key, over, -1).Err(); err != nil {
			return fmt.Errorf("redis ltrim failed: %w", err)
		}
		metrics.RecordHistoryEvictions(int(over))
	}

	return nil
}

// Clear deletes the session list. Deleting a missing key is not an error.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Stats summarizes the stored history per role.
func (s *RedisStore) Stats(ctx context.Context, sessionID string) (chat.Stats, error) {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return chat.Stats{}, err
	}
	return chat.CountStats(history), nil
}

// Close releases the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
