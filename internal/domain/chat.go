package domain

// Conversation roles as the chat-completion API expects them.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape shared by the
// conversation history and the LLM integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
