package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/voyagechat/backend/internal/model/chat"
	"github.com/voyagechat/backend/internal/service/ai"
	"github.com/voyagechat/backend/internal/session"
)

// Builder assembles the outgoing completion request for one conversation
// turn: the system message first, then the stored session window, then the
// new user message.
type Builder struct {
	composer *ai.Composer
	store    session.Store
	defaults Defaults
}

// NewBuilder creates a builder over the given composer and session store.
func NewBuilder(composer *ai.Composer, store session.Store, defaults Defaults) *Builder {
	return &Builder{composer: composer, store: store, defaults: defaults}
}

// contextTag resolves which context tag a turn runs under.
func (b *Builder) contextTag(opts Options) string {
	if tag := strings.TrimSpace(opts.Context); tag != "" {
		return tag
	}
	return b.defaults.Context
}

// contextName returns the template name the turn resolves to. Unknown tags
// collapse to the default template, so the result is bounded to the seeded
// set and safe as a metric label.
func (b *Builder) contextName(opts Options) string {
	return b.composer.Resolve(b.contextTag(opts)).Name
}

// Build assembles the request for userText and records the user message in
// the session. The history snapshot is taken before that append, so the new
// message appears exactly once, as the final element. The append is not
// rolled back if the upstream call later fails: the customer did say it.
func (b *Builder) Build(ctx context.Context, sessionID, userText string, opts Options) (chat.CompletionRequest, error) {
	contextTag := b.contextTag(opts)
	tpl := b.composer.Resolve(contextTag)
	system := b.composer.BuildSystemMessage(contextTag, opts.UserInfo)

	includeHistory := true
	if opts.IncludeHistory != nil {
		includeHistory = *opts.IncludeHistory
	}

	messages := []chat.Message{system}
	if includeHistory {
		history, err := b.store.History(ctx, sessionID)
		if err != nil {
			return chat.CompletionRequest{}, fmt.Errorf("load session history: %w", err)
		}
		messages = append(messages, history...)
	}

	userMsg := chat.User(strings.TrimSpace(userText))
	messages = append(messages, userMsg)

	if err := b.store.Append(ctx, sessionID, userMsg); err != nil {
		return chat.CompletionRequest{}, fmt.Errorf("record user message: %w", err)
	}

	return chat.CompletionRequest{
		Messages:    messages,
		Temperature: resolveFloat(opts.Temperature, tpl.Temperature, b.defaults.Temperature),
		MaxTokens:   resolveInt(opts.MaxTokens, tpl.MaxTokens, b.defaults.MaxTokens),
		TopP:        1,
	}, nil
}
