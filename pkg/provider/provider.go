// Package provider adapts the internal conversation format to concrete LLM
// provider APIs and exposes their streaming responses as a normalized stream
// of text fragments.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conduitlabs/relay/pkg/chat"
)

// Request is one streaming completion request.
type Request struct {
	// Conversation is the assembled, ordered message sequence.
	Conversation []chat.Message

	// Model is the requested model name. Blank or whitespace-only resolves
	// to the provider's configured default.
	Model string

	// GenerationConfig is passed through to the provider unmodified.
	GenerationConfig map[string]any
}

// Stream is an explicit, cancellable iterator over text fragments. Recv
// returns io.EOF when the upstream stream ends; Close releases the upstream
// connection and is safe to call on every exit path, including after a
// client disconnect.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider is a streaming LLM backend, selected at construction time.
// Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (Stream, error)
}

// APIError carries an upstream failure: the provider's HTTP status and a
// best-effort extraction of its error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// newAPIError builds an APIError from a raw response body. JSON bodies with
// an error.message field are unwrapped; anything else is carried verbatim.
func newAPIError(status int, body []byte) *APIError {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return &APIError{Status: status, Message: parsed.Error.Message}
	}
	return &APIError{Status: status, Message: string(body)}
}
