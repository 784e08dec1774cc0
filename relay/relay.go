// Package relay provides a thin backend relay: it accepts chat conversation
// requests, enriches them with web-search and team-skills context, forwards
// them to an LLM provider's streaming endpoint, and relays the token stream
// back to the caller as server-sent events.
package relay

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
	"github.com/conduitlabs/relay/pkg/prompt"
	"github.com/conduitlabs/relay/pkg/provider"
	"github.com/conduitlabs/relay/pkg/skills"
)

// Relay is the server. Each request owns its conversation state exclusively;
// the only shared pieces are the provider, the preset table, and the skills
// directory, all of which are safe for concurrent use.
type Relay struct {
	config    Config
	logger    *zap.Logger
	provider  provider.Provider
	assembler *prompt.Assembler
	presets   *prompt.Table
	skillsDir skills.Directory
	server    *fiber.App
}

// New creates a Relay from config. The provider variant is chosen here, at
// construction: Gemini when a Gemini key is configured, otherwise OpenAI
// when an OpenAI key is, otherwise no provider (requests fail with the
// standard envelope until one is configured).
func New(config Config, logger *zap.Logger) (*Relay, error) {
	transport, err := newTransport(config.Proxy)
	if err != nil {
		return nil, err
	}
	transport.ResponseHeaderTimeout = upstreamTimeout

	// No Client.Timeout on the provider client: it would cut off the
	// streaming body read. The transport bounds connect and headers only.
	providerClient := &http.Client{Transport: transport}
	searchClient := &http.Client{Transport: transport, Timeout: searchTimeout}

	var prov provider.Provider
	switch {
	case config.Gemini.APIKey != "":
		prov, err = provider.NewGemini(provider.GeminiConfig{
			APIKey:        config.Gemini.APIKey,
			BaseURL:       config.Gemini.BaseURL,
			DefaultModel:  config.Gemini.Model,
			FallbackModel: config.Gemini.FallbackModel,
			HTTPClient:    providerClient,
		}, logger)
	case config.OpenAI.APIKey != "":
		prov, err = provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:       config.OpenAI.APIKey,
			BaseURL:      config.OpenAI.BaseURL,
			DefaultModel: config.OpenAI.Model,
		}, logger)
	default:
		logger.Warn("no provider key configured, conversation requests will fail")
	}
	if err != nil {
		return nil, err
	}
	if prov != nil {
		logger.Info("provider selected", zap.String("provider", prov.Name()))
	}

	var presets *prompt.Table
	if config.PresetsPath != "" {
		presets, err = prompt.LoadTable(config.PresetsPath, logger)
		if err != nil {
			return nil, err
		}
		if err := presets.Watch(); err != nil {
			return nil, err
		}
	} else {
		presets = prompt.NewTable(logger)
	}

	var searcher prompt.Searcher
	if config.SearchEndpoint != "" {
		searcher = prompt.NewSearchClient(config.SearchEndpoint, searchClient)
	}

	var skillsDir skills.Directory
	if config.SkillsDBPath != "" {
		skillsDir, err = skills.NewSQLiteDirectory(config.SkillsDBPath)
		if err != nil {
			return nil, err
		}
		logger.Info("using SQLite skills directory", zap.String("path", config.SkillsDBPath))
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	r := &Relay{
		config:    config,
		logger:    logger,
		provider:  prov,
		assembler: prompt.NewAssembler(presets, searcher, skillsDir, logger),
		presets:   presets,
		skillsDir: skillsDir,
		server:    app,
	}

	app.Use(requestID())
	r.registerRoutes(app)

	return r, nil
}

// registerRoutes wires the relay's handlers onto app.
func (r *Relay) registerRoutes(app *fiber.App) {
	app.Post("/backend-api/v2/conversation", r.handleConversation)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
}

// requestID tags every request with an ID for log correlation.
func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("request_id", uuid.NewString())
		return c.Next()
	}
}

// Run starts the relay server on the configured listening address.
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		zap.String("listen", r.config.ListenAddr),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// Close shuts down the relay and releases resources.
func (r *Relay) Close() error {
	if err := r.presets.Close(); err != nil {
		return err
	}
	if r.skillsDir != nil {
		return r.skillsDir.Close()
	}
	return nil
}

// requestLogger returns the logger annotated with the request ID.
func (r *Relay) requestLogger(c *fiber.Ctx) *zap.Logger {
	if id, ok := c.Locals("request_id").(string); ok {
		return r.logger.With(zap.String("request_id", id))
	}
	return r.logger
}

// askError writes the fixed-shape 400 failure envelope.
func askError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(chat.NewAskResponse(msg))
}
