package chat

// Roles carried by conversation messages. History holds user and assistant
// turns only; system messages are composed per request and never stored.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn in upstream wire order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Stats summarizes the stored history of one session.
type Stats struct {
	TotalMessages     int `json:"totalMessages"`
	UserMessages      int `json:"userMessages"`
	AssistantMessages int `json:"assistantMessages"`
}

// CountStats tallies per-role counts for a history slice.
func CountStats(messages []Message) Stats {
	stats := Stats{TotalMessages: len(messages)}
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			stats.UserMessages++
		case RoleAssistant:
			stats.AssistantMessages++
		}
	}
	return stats
}
