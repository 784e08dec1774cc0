package chat

// ConversationRequest is the inbound request body for the conversation route.
type ConversationRequest struct {
	Jailbreak        string         `json:"jailbreak"`                  // Preset key for special instructions
	Model            string         `json:"model,omitempty"`            // Requested model name (blank = default)
	GenerationConfig map[string]any `json:"generationConfig,omitempty"` // Passed through to the provider unmodified
	Meta             Meta           `json:"meta"`
}

// Meta wraps the conversation payload.
type Meta struct {
	Content MetaContent `json:"content"`
}

// MetaContent carries the conversation history and the newest prompt.
// InternetAccess is a pointer so a missing flag can be told apart from false.
type MetaContent struct {
	InternetAccess *bool     `json:"internet_access"`
	Conversation   []Message `json:"conversation"`
	Parts          []Part    `json:"parts"`
}

// Part is one fragment of the newest user prompt.
type Part struct {
	Content string `json:"content"`
	Role    string `json:"role,omitempty"`
}

// Validate checks that all required request fields are present.
func (r *ConversationRequest) Validate() error {
	if r.Jailbreak == "" {
		return &ValidationError{Field: "jailbreak"}
	}
	if r.Meta.Content.InternetAccess == nil {
		return &ValidationError{Field: "meta.content.internet_access"}
	}
	if r.Meta.Content.Conversation == nil {
		return &ValidationError{Field: "meta.content.conversation"}
	}
	if len(r.Meta.Content.Parts) == 0 {
		return &ValidationError{Field: "meta.content.parts"}
	}
	return nil
}

// Prompt returns the newest user message built from the first prompt part.
func (r *ConversationRequest) Prompt() Message {
	part := r.Meta.Content.Parts[0]
	role := part.Role
	if role == "" {
		role = RoleUser
	}
	return Message{Role: role, Content: part.Content}
}
