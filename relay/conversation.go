package relay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
	"github.com/conduitlabs/relay/pkg/prompt"
	"github.com/conduitlabs/relay/pkg/provider"
)

// handleConversation orchestrates one request: validate, assemble the
// conversation, open the provider stream, then relay it to the client as
// SSE. Every failure before the first streamed byte maps to a structured
// envelope; after that the stream itself is the only channel left.
func (r *Relay) handleConversation(c *fiber.Ctx) error {
	startTime := time.Now()
	logger := r.requestLogger(c)

	var req chat.ConversationRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		logger.Error("failed to parse request", zap.Error(err))
		return askError(c, "invalid request body")
	}

	if err := req.Validate(); err != nil {
		logger.Warn("invalid conversation request", zap.Error(err))
		return askError(c, err.Error())
	}

	if r.provider == nil {
		return askError(c, "no LLM provider key configured")
	}

	logger.Debug("received conversation request",
		zap.String("jailbreak", req.Jailbreak),
		zap.String("model", req.Model),
		zap.Int("history_count", len(req.Meta.Content.Conversation)),
		zap.Bool("internet_access", *req.Meta.Content.InternetAccess),
	)

	conversation, err := r.assembler.Assemble(c.Context(), prompt.Input{
		JailbreakKey:   req.Jailbreak,
		History:        req.Meta.Content.Conversation,
		Prompt:         req.Prompt(),
		InternetAccess: *req.Meta.Content.InternetAccess,
	})
	if err != nil {
		logger.Warn("failed to assemble conversation", zap.Error(err))
		return askError(c, err.Error())
	}

	stream, err := r.provider.Stream(c.Context(), provider.Request{
		Conversation:     conversation,
		Model:            req.Model,
		GenerationConfig: req.GenerationConfig,
	})
	if err != nil {
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			logger.Error("provider returned error",
				zap.Int("status", apiErr.Status),
				zap.String("message", apiErr.Message),
			)
			return c.Status(apiErr.Status).JSON(chat.ProviderFailure{
				Message: fmt.Sprintf("%s request failed: %d %s", r.provider.Name(), apiErr.Status, apiErr.Message),
			})
		}

		logger.Error("failed to open provider stream", zap.Error(err))
		return askError(c, err.Error())
	}

	// Set up streaming response headers. From here on no structured error
	// can reach the client; the stream is the response.
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer stream.Close()

		var fragments int
		for {
			text, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				// Terminal upstream failure mid-stream. Already-sent
				// events stand; emit one final error frame so the client
				// can tell this apart from a clean close.
				logger.Warn("upstream stream failed mid-relay", zap.Error(err))
				writeEvent(w, chat.StreamError{Error: "upstream stream failed"})
				return
			}

			if err := writeEvent(w, chat.StreamEvent{Text: text}); err != nil {
				// Client disconnected. Expected termination: stop reading
				// the upstream and release it via the deferred Close.
				logger.Debug("client disconnected during relay", zap.Error(err))
				return
			}
			fragments++
		}

		logger.Info("conversation streamed",
			zap.Int("fragments", fragments),
			zap.Duration("duration", time.Since(startTime)),
		)
	}))

	return nil
}

// writeEvent serializes one outbound SSE record and flushes it immediately.
// The two-newline framing is required for client Event Stream parsing.
func writeEvent(w *bufio.Writer, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
