package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/voyagechat/backend/internal/metrics"
	"github.com/voyagechat/backend/internal/model/chat"
	"github.com/voyagechat/backend/internal/session"
)

// ErrUpstreamNotConfigured is returned when no completion credentials were
// provided at startup. Conversation state endpoints keep working; only the
// turns that need the upstream are refused.
var ErrUpstreamNotConfigured = errors.New("upstream gateway is not configured")

// CompletionGateway is the single upstream call the service depends on.
type CompletionGateway interface {
	Complete(ctx context.Context, req chat.CompletionRequest) (chat.Completion, error)
}

// Service mediates conversation turns. It validates input, assembles the
// completion request, performs the upstream call, and records both sides of
// the exchange in the session store.
type Service struct {
	gateway CompletionGateway
	store   session.Store
	builder *Builder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the conversation service. A nil gateway is allowed and
// puts the service in a degraded mode where ProcessMessage returns
// ErrUpstreamNotConfigured.
func NewService(gateway CompletionGateway, store session.Store, builder *Builder) *Service {
	return &Service{
		gateway: gateway,
		store:   store,
		builder: builder,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Ready reports whether completion turns can be served.
func (s *Service) Ready() bool {
	return s.gateway != nil
}

// NewSessionID mints an identifier for a fresh conversation. Sessions are
// created lazily; the identifier becomes real on its first message.
func (s *Service) NewSessionID() string {
	return uuid.NewString()
}

// sessionLock returns the per-session mutex, creating it on first use.
// Locks are never pruned; they are tiny compared to the histories the store
// already bounds.
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// ProcessMessage runs one conversation turn: validate, build the request,
// call the upstream, record the reply. Turns on the same session are
// serialized so interleaved requests cannot corrupt the transcript order.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, text string, opts Options) (chat.Result, error) {
	if strings.TrimSpace(text) == "" {
		metrics.RecordTurn(s.builder.contextName(opts), string(chat.KindValidation))
		return chat.Result{}, chat.ValidationError("message text is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		metrics.RecordTurn(s.builder.contextName(opts), string(chat.KindValidation))
		return chat.Result{}, chat.ValidationError("sessionId is required")
	}
	if s.gateway == nil {
		return chat.Result{}, ErrUpstreamNotConfigured
	}

	contextName := s.builder.contextName(opts)

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.builder.Build(ctx, sessionID, text, opts)
	if err != nil {
		metrics.RecordTurn(contextName, "store_error")
		return chat.Result{}, err
	}

	completion, err := s.gateway.Complete(ctx, req)
	if err != nil {
		// The user message stays recorded: the customer did send it,
		// and a retried turn should see it exactly once.
		metrics.RecordTurn(contextName, turnOutcome(err))
		return chat.Result{}, err
	}

	if err := s.store.Append(ctx, sessionID, completion.Message); err != nil {
		metrics.RecordTurn(contextName, "store_error")
		return chat.Result{}, fmt.Errorf("record assistant message: %w", err)
	}

	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		metrics.RecordTurn(contextName, "store_error")
		return chat.Result{}, fmt.Errorf("load conversation length: %w", err)
	}

	metrics.RecordTurn(contextName, "ok")
	return chat.Result{
		Reply:              completion.Message.Content,
		Usage:              completion.Usage,
		Model:              completion.Model,
		ConversationLength: len(history),
	}, nil
}

// History returns the stored window for a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.History(ctx, sessionID)
}

// ClearConversation wipes a session's history. It waits for any in-flight
// turn on the same session so the wipe lands on a settled transcript.
func (s *Service) ClearConversation(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return s.store.Clear(ctx, sessionID)
}

// Stats summarizes a session's stored window.
func (s *Service) Stats(ctx context.Context, sessionID string) (chat.Stats, error) {
	return s.store.Stats(ctx, sessionID)
}

func turnOutcome(err error) string {
	if turnErr, ok := chat.AsTurnError(err); ok {
		return string(turnErr.Kind)
	}
	return "internal_error"
}
