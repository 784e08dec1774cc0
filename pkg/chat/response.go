package chat

// StreamEvent is one incremental text fragment emitted to the client as a
// single server-sent-event record.
type StreamEvent struct {
	Text string `json:"text"`
}

// StreamError is the final frame emitted when the upstream stream fails after
// streaming has already begun. By then the status line is long gone, so this
// is the only error signal the client can still receive.
type StreamError struct {
	Error string `json:"error"`
}

// AskResponse is the fixed-shape failure envelope returned for validation,
// configuration and dependency failures before any byte has been streamed.
type AskResponse struct {
	Action  string `json:"_action"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewAskResponse builds the failure envelope with the "_ask" action set.
func NewAskResponse(msg string) AskResponse {
	return AskResponse{Action: "_ask", Success: false, Error: msg}
}

// ProviderFailure mirrors the upstream failure envelope. The "successs" key
// is misspelled on the wire; deployed clients match on it, so it stays.
type ProviderFailure struct {
	Success bool   `json:"successs"`
	Message string `json:"message"`
}
