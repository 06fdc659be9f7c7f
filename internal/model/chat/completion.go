package chat

// UserInfo carries optional personalization hints supplied by the caller.
type UserInfo struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	Language string `json:"language,omitempty"`
}

// CompletionRequest is a fully assembled upstream chat completion call:
// message list in wire order plus resolved sampling parameters.
type CompletionRequest struct {
	Model            string
	Messages         []Message
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Usage reports token accounting from the upstream provider.
type Usage struct {
	PromptTokens     int64 `json:"promptTokens"`
	CompletionTokens int64 `json:"completionTokens"`
	TotalTokens      int64 `json:"totalTokens"`
}

// Completion is the extracted payload of a successful upstream response.
type Completion struct {
	Message Message
	Usage   Usage
	Model   string
}

// Result is what one processed turn returns to the transport layer.
type Result struct {
	Reply              string `json:"reply"`
	Usage              Usage  `json:"usage"`
	Model              string `json:"model"`
	ConversationLength int    `json:"conversationLength"`
}
