package chat

import (
	"github.com/voyagechat/backend/internal/model/chat"
)

// Options carries the optional per-turn knobs a caller may set. Nil fields
// fall back to the context template's values and then to the service
// defaults.
type Options struct {
	Context        string
	UserInfo       chat.UserInfo
	Temperature    *float64
	MaxTokens      *int
	IncludeHistory *bool
}

// Defaults holds the service-wide fallbacks applied when neither the caller
// nor the context template specifies a value.
type Defaults struct {
	Context     string
	Temperature float64
	MaxTokens   int
}

func resolveFloat(explicit, template *float64, fallback float64) float64 {
	if explicit != nil {
		return *explicit
	}
	if template != nil {
		return *template
	}
	return fallback
}

func resolveInt(explicit, template *int, fallback int) int {
	if explicit != nil {
		return *explicit
	}
	if template != nil {
		return *template
	}
	return fallback
}
