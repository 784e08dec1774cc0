package provider

import (
	"context"
	"errors"
	"strings"

	openaiapi "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // optional override for OpenAI-compatible endpoints
	DefaultModel string
}

// OpenAI streams chat completions from the OpenAI API. It is the alternate
// provider variant, selected at construction when only an OpenAI key is
// configured.
type OpenAI struct {
	api          *openaiapi.Client
	defaultModel string
	logger       *zap.Logger
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig, logger *zap.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, &chat.ConfigurationError{Msg: "openai API key is required"}
	}

	apiCfg := openaiapi.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.DefaultModel
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		api:          openaiapi.NewClientWithConfig(apiCfg),
		defaultModel: model,
		logger:       logger,
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Stream issues a streaming chat completion. OpenAI accepts the internal
// roles directly, so no system-instruction split is needed.
func (o *OpenAI) Stream(ctx context.Context, req Request) (Stream, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = o.defaultModel
	}

	messages := make([]openaiapi.ChatCompletionMessage, 0, len(req.Conversation))
	for _, msg := range req.Conversation {
		messages = append(messages, openaiapi.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	stream, err := o.api.CreateChatCompletionStream(ctx, openaiapi.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		var apiErr *openaiapi.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, err
	}

	return &openaiStream{stream: stream}, nil
}

// openaiStream adapts the go-openai stream to the normalized Stream shape.
type openaiStream struct {
	stream *openaiapi.ChatCompletionStream
}

// Recv returns the next non-empty delta. io.EOF passes through unchanged
// when the upstream finishes.
func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if text := resp.Choices[0].Delta.Content; text != "" {
			return text, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.stream.Close()
}
