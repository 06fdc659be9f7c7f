package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/voyagechat/backend/internal/config"
	"github.com/voyagechat/backend/internal/model/chat"
	"github.com/voyagechat/backend/internal/model/prompt"
	"github.com/voyagechat/backend/internal/service/ai"
	chatService "github.com/voyagechat/backend/internal/service/chat"
	"github.com/voyagechat/backend/internal/session"
)

// chatprobe runs a single conversation turn against the configured upstream,
// bypassing HTTP. Useful for checking credentials and prompt wiring.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.Upstream.Enabled() {
		log.Fatal("upstream is not configured, set OPENAI_API_KEY first")
	}

	message := flag.String("message", "", "user message to send")
	contextTag := flag.String("context", "", "conversation context tag, empty uses the configured default")
	sessionID := flag.String("session", "", "session ID, auto-generated when empty")
	name := flag.String("name", "", "customer name for prompt personalization")
	location := flag.String("location", "", "customer location for prompt personalization")
	language := flag.String("lang", "", "customer language code for prompt personalization")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	if strings.TrimSpace(*message) == "" {
		flag.Usage()
		log.Fatal("provide a user message with -message")
	}

	store := session.NewMemoryStore(session.Config{MaxHistory: cfg.Chat.MaxHistory})
	defer store.Close()

	composer := ai.NewComposer(prompt.NewMemoryStore(prompt.Seed()))
	builder := chatService.NewBuilder(composer, store, chatService.Defaults{
		Context:     cfg.Chat.DefaultContext,
		Temperature: cfg.Chat.DefaultTemperature,
		MaxTokens:   cfg.Chat.DefaultMaxTokens,
	})
	svc := chatService.NewService(ai.NewGateway(cfg.Upstream), store, builder)

	id := *sessionID
	if id == "" {
		id = svc.NewSessionID()
	}

	opts := chatService.Options{
		Context: *contextTag,
		UserInfo: chat.UserInfo{
			Name:     *name,
			Location: *location,
			Language: *language,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("sending turn: session=%s context=%q model=%s", id, *contextTag, cfg.Upstream.Model)

	started := time.Now()
	result, err := svc.ProcessMessage(ctx, id, *message, opts)
	if err != nil {
		log.Fatalf("turn failed: %v", err)
	}

	log.Printf("reply: %s", result.Reply)
	log.Printf("model=%s tokens prompt=%d completion=%d total=%d latency=%s",
		result.Model,
		result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens,
		time.Since(started).Round(time.Millisecond))
}
