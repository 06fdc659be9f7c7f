package prompt

// DefaultName is the fallback template used for unknown context tags.
const DefaultName = "general"

// Template is a reusable system prompt bound to a conversation context.
// Temperature and MaxTokens optionally override the service defaults for
// requests built under this context; explicit caller options win over both.
type Template struct {
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

// Seed provides the built-in conversation contexts.
func Seed() []Template {
	return []Template{
		{
			Name:    "travel",
			Content: "You are a friendly and knowledgeable travel assistant for VoyageChat, a travel company. Help customers plan trips, discover destinations, and answer questions about flights, accommodation, and local attractions. Keep answers practical and concise.",
		},
		{
			Name:    "booking",
			Content: "You are a booking assistant for VoyageChat, a travel company. Help customers create, review, change, and cancel reservations for flights, hotels, and holiday packages. Confirm the relevant details before suggesting changes and be precise about dates, prices, and conditions.",
		},
		{
			Name:    "support",
			Content: "You are a customer support agent for VoyageChat, a travel company. Help customers resolve problems with their bookings, payments, and account. Be patient and empathetic, acknowledge the issue first, and offer clear next steps.",
		},
		{
			Name:    "general",
			Content: "You are a helpful assistant for VoyageChat, a travel company. Answer the customer's questions clearly and courteously.",
		},
	}
}
