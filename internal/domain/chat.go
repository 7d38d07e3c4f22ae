package domain

// ChatMessage is the provider-agnostic chat message shape used by the LLM
// integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Role tags the sender of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a chat widget session.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
