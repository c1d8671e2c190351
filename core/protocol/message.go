// Package protocol defines the chat message shapes shared by the generation
// and judge backends.
package protocol

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a chat completion request.
// Both backends are text-only, so Content is always a string.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a Message with the given role and content.
//
// Example:
//
//	msg := protocol.NewMessage(protocol.RoleUser, "Which US state should I visit?")
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// InitMessages creates a single-element message slice from a role and content string.
// The steering loop sends the same one-message conversation every iteration.
func InitMessages(role Role, content string) []Message {
	return []Message{NewMessage(role, content)}
}
