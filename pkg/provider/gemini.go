package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
	geminiStreamEndpoint = "streamGenerateContent"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey        string
	BaseURL       string // defaults to the public generativelanguage endpoint
	DefaultModel  string // used when the request carries no model name
	FallbackModel string // retried once on a 404 for the requested model

	// HTTPClient issues the streaming calls. It should carry the configured
	// proxy settings and a bounded connect/response timeout.
	HTTPClient *http.Client
}

// Gemini streams completions from the Gemini API.
type Gemini struct {
	apiKey        string
	baseURL       string
	defaultModel  string
	fallbackModel string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, &chat.ConfigurationError{Msg: "gemini API key is required"}
	}

	g := &Gemini{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel:  cfg.DefaultModel,
		fallbackModel: cfg.FallbackModel,
		httpClient:    cfg.HTTPClient,
		logger:        logger,
	}
	if g.baseURL == "" {
		g.baseURL = defaultGeminiBaseURL
	}
	if g.defaultModel == "" {
		g.defaultModel = defaultGeminiModel
	}
	if g.fallbackModel == "" {
		g.fallbackModel = defaultGeminiModel
	}
	if g.httpClient == nil {
		g.httpClient = http.DefaultClient
	}

	return g, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Stream issues the streaming call for req, retrying once with the fallback
// model if the requested model is rejected as not-found.
func (g *Gemini) Stream(ctx context.Context, req Request) (Stream, error) {
	model, err := g.ResolveModel(req.Model)
	if err != nil {
		return nil, err
	}

	body, err := g.BuildRequest(req.Conversation, req.GenerationConfig)
	if err != nil {
		return nil, fmt.Errorf("building gemini request: %w", err)
	}

	resp, err := g.post(ctx, model, body)
	if err != nil {
		return nil, err
	}

	// A single, non-recursive fallback: a 404 for the requested model is
	// retried once with the fallback model and the identical body. A second
	// 404 is terminal.
	if resp.StatusCode == http.StatusNotFound && model != g.fallbackModel {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		g.logger.Warn("model not found, retrying with fallback",
			zap.String("model", model),
			zap.String("fallback", g.fallbackModel),
			zap.String("body", string(errBody)),
		)

		resp, err = g.post(ctx, g.fallbackModel, body)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, newAPIError(resp.StatusCode, errBody)
	}

	return newSSEStream(resp.Body), nil
}

func (g *Gemini) post(ctx context.Context, model string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(model), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	return resp, nil
}

func (g *Gemini) endpoint(model string) string {
	return fmt.Sprintf("%s/models/%s:%s?alt=sse", g.baseURL, model, geminiStreamEndpoint)
}

// ResolveModel normalizes a requested model name: whitespace is trimmed and
// a blank or absent name falls back to the configured default. The resolved
// name is never empty.
func (g *Gemini) ResolveModel(requested string) (string, error) {
	model := strings.TrimSpace(requested)
	if model == "" {
		model = g.defaultModel
	}
	if model == "" {
		return "", &chat.ValidationError{Field: "model", Reason: "no model name resolved"}
	}
	return model, nil
}

// Gemini wire format. Typed structs (rather than maps) keep the marshaled
// body deterministic for identical input.
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]any           `json:"generationConfig,omitempty"`
}

// BuildRequest maps a conversation into the Gemini request body. All
// system-role content is concatenated into systemInstruction; the remaining
// messages map user to "user" and everything else to "model", order
// preserved.
func (g *Gemini) BuildRequest(conversation []chat.Message, generationConfig map[string]any) ([]byte, error) {
	var systemFragments []string
	contents := make([]geminiContent, 0, len(conversation))

	for _, msg := range conversation {
		if msg.Role == chat.RoleSystem {
			systemFragments = append(systemFragments, msg.Content)
			continue
		}

		role := "model"
		if msg.Role == chat.RoleUser {
			role = "user"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	req := geminiRequest{
		Contents:         contents,
		GenerationConfig: generationConfig,
	}
	if len(systemFragments) > 0 {
		req.SystemInstruction = &geminiSystemInstruction{
			Parts: []geminiPart{{Text: strings.Join(systemFragments, "\n\n")}},
		}
	}

	return json.Marshal(req)
}
