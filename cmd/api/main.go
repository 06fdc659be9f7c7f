package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voyagechat/backend/internal/config"
	"github.com/voyagechat/backend/internal/handler"
	"github.com/voyagechat/backend/internal/logging"
	"github.com/voyagechat/backend/internal/model/prompt"
	"github.com/voyagechat/backend/internal/service/ai"
	chatService "github.com/voyagechat/backend/internal/service/chat"
	"github.com/voyagechat/backend/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.Init(logging.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := session.New(session.Config{
		Backend:     cfg.Session.Backend,
		MaxHistory:  cfg.Chat.MaxHistory,
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
		Redis: session.RedisConfig{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		},
	})
	if err != nil {
		logging.Fatalf("failed to initialize session store: %v", err)
	}
	defer store.Close()

	composer := ai.NewComposer(prompt.NewMemoryStore(prompt.Seed()))
	builder := chatService.NewBuilder(composer, store, chatService.Defaults{
		Context:     cfg.Chat.DefaultContext,
		Temperature: cfg.Chat.DefaultTemperature,
		MaxTokens:   cfg.Chat.DefaultMaxTokens,
	})

	// Without upstream credentials the service still starts; chat routes
	// answer 503 until OPENAI_API_KEY is provided.
	var gateway chatService.CompletionGateway
	if cfg.Upstream.Enabled() {
		gateway = ai.NewGateway(cfg.Upstream)
		logging.Infof("completion gateway initialized model=%s base=%s", cfg.Upstream.Model, cfg.Upstream.BaseURL)
	} else {
		logging.Warnf("OPENAI_API_KEY not set, running without chat completion")
	}

	chatSvc := chatService.NewService(gateway, store, builder)
	router := handler.NewRouter(chatSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logging.Infof("VoyageChat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		logging.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
