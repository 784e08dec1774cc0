package provider

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

const (
	sseDataPrefix = "data:"
	sseDoneMarker = "[DONE]"
)

// geminiChunk is the subset of a streamed Gemini frame the relay cares
// about. Every level may legitimately be absent; absence means "no text in
// this frame", not an error.
type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// sseStream reads a line-oriented SSE body and yields the text fragments
// found in each parseable frame. Malformed frames are skipped, never fatal:
// one bad line must not abort the whole stream.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	pending []string
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	// Frames carry whole model responses; the default 64K token limit is
	// too small for long parts.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &sseStream{
		body:    body,
		scanner: scanner,
	}
}

// Recv returns the next text fragment, io.EOF when the upstream closes the
// stream, or the transport error that ended it.
func (s *sseStream) Recv() (string, error) {
	for {
		if len(s.pending) > 0 {
			text := s.pending[0]
			s.pending = s.pending[1:]
			return text, nil
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}

		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		// The termination sentinel and empty payloads are skipped rather
		// than treated as end-of-stream; the transport close is the only
		// terminator.
		if payload == "" || payload == sseDoneMarker {
			continue
		}

		var chunk geminiChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}

		for _, candidate := range chunk.Candidates {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					s.pending = append(s.pending, part.Text)
				}
			}
		}
	}
}

// Close releases the upstream connection.
func (s *sseStream) Close() error {
	return s.body.Close()
}
