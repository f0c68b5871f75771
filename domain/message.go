package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn in a conversation. Messages are immutable
// once appended; their order within a session is significant.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
