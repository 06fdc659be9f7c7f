package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Chat     ChatConfig
	Session  SessionConfig
	Log      LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	upstream, err := loadUpstreamConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Upstream: upstream,
		Chat:     chat,
		Session:  session,
		Log: LogConfig{
			Level:    getEnvOrDefault("LOG_LEVEL", "info"),
			Encoding: getEnvOrDefault("LOG_ENCODING", "json"),
		},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// UpstreamConfig describes the OpenAI-compatible completion endpoint.
type UpstreamConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Enabled reports whether upstream credentials were provided. Without them
// the service still runs, with chat completion routes answering 503.
func (c UpstreamConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadUpstreamConfig() (UpstreamConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("OPENAI_TIMEOUT_SECONDS"); err != nil {
		return UpstreamConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return UpstreamConfig{}, fmt.Errorf("OPENAI_TIMEOUT_SECONDS must be positive, got %d", *override)
		}
		timeoutSeconds = *override
	}

	return UpstreamConfig{
		APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// ChatConfig carries conversation defaults applied when the caller omits
// the corresponding option.
type ChatConfig struct {
	MaxHistory         int
	DefaultTemperature float64
	DefaultMaxTokens   int
	DefaultContext     string
}

func loadChatConfig() (ChatConfig, error) {
	maxHistory := 20
	if override, err := parseOptionalIntEnv("CHAT_MAX_HISTORY"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ChatConfig{}, fmt.Errorf("CHAT_MAX_HISTORY must be positive, got %d", *override)
		}
		maxHistory = *override
	}

	temperature := 0.7
	if override, err := parseOptionalFloatEnv("CHAT_DEFAULT_TEMPERATURE"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	maxTokens := 500
	if override, err := parseOptionalIntEnv("CHAT_DEFAULT_MAX_TOKENS"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ChatConfig{}, fmt.Errorf("CHAT_DEFAULT_MAX_TOKENS must be positive, got %d", *override)
		}
		maxTokens = *override
	}

	return ChatConfig{
		MaxHistory:         maxHistory,
		DefaultTemperature: temperature,
		DefaultMaxTokens:   maxTokens,
		DefaultContext:     getEnvOrDefault("CHAT_DEFAULT_CONTEXT", "travel"),
	}, nil
}

// SessionConfig selects and tunes the history backend.
type SessionConfig struct {
	Backend     string
	TTL         time.Duration
	MaxSessions int
	Redis       RedisConfig
}

// RedisConfig holds connection settings for the redis history backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func loadSessionConfig() (SessionConfig, error) {
	ttlSeconds := 0
	if override, err := parseOptionalIntEnv("SESSION_TTL_SECONDS"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return SessionConfig{}, fmt.Errorf("SESSION_TTL_SECONDS must not be negative, got %d", *override)
		}
		ttlSeconds = *override
	}

	maxSessions := 0
	if override, err := parseOptionalIntEnv("SESSION_MAX_SESSIONS"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return SessionConfig{}, fmt.Errorf("SESSION_MAX_SESSIONS must not be negative, got %d", *override)
		}
		maxSessions = *override
	}

	redisDB := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		redisDB = *override
	}

	return SessionConfig{
		Backend:     getEnvOrDefault("SESSION_BACKEND", "memory"),
		TTL:         time.Duration(ttlSeconds) * time.Second,
		MaxSessions: maxSessions,
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
			DB:       redisDB,
		},
	}, nil
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level    string
	Encoding string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
