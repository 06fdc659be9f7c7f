package ai

import (
	"fmt"
	"strings"

	"github.com/voyagechat/backend/internal/model/chat"
	"github.com/voyagechat/backend/internal/model/prompt"
)

// DefaultLanguage is the language the seeded templates are written in. A
// matching preference adds no instruction.
const DefaultLanguage = "en"

// Composer assembles system messages from context templates and the
// caller's personalization hints.
type Composer struct {
	templates prompt.Store
}

// NewComposer creates a composer over the given template store.
func NewComposer(templates prompt.Store) *Composer {
	return &Composer{templates: templates}
}

// Resolve returns the template for contextTag, falling back to the default
// template when the tag is unknown.
func (c *Composer) Resolve(contextTag string) prompt.Template {
	if tpl, ok := c.templates.Find(contextTag); ok {
		return tpl
	}
	return c.templates.Default()
}

// BuildSystemMessage renders the system message for one turn. Known user
// details are appended as clauses in a fixed order: name, then location,
// then a language instruction when the preference differs from the default.
func (c *Composer) BuildSystemMessage(contextTag string, user chat.UserInfo) chat.Message {
	tpl := c.Resolve(contextTag)

	var builder strings.Builder
	builder.WriteString(tpl.Content)

	if name := strings.TrimSpace(user.Name); name != "" {
		fmt.Fprintf(&builder, " The customer's name is %s.", name)
	}
	if location := strings.TrimSpace(user.Location); location != "" {
		fmt.Fprintf(&builder, " The customer is located in %s.", location)
	}
	if language := strings.TrimSpace(user.Language); language != "" && language != DefaultLanguage {
		fmt.Fprintf(&builder, " Respond in the customer's preferred language: %s.", language)
	}

	return chat.System(builder.String())
}
