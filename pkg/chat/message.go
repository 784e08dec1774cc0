// Package chat provides the internal representation of conversation
// requests and responses which are assembled and relayed to an LLM provider.
package chat

// Roles recognized in a conversation. Ordering of messages within a
// conversation is significant and always preserved.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}
