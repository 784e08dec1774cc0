package relay

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the relay server configuration. It is constructed once at
// startup and passed by reference into the components; nothing in the core
// reads the environment.
type Config struct {
	// Address to listen on (e.g. ":1338")
	ListenAddr string `toml:"listen_addr"`

	Gemini GeminiSettings `toml:"gemini"`
	OpenAI OpenAISettings `toml:"openai"`

	// SearchEndpoint is the DDG-style web-search API used for internet
	// enrichment. Empty disables the enricher.
	SearchEndpoint string `toml:"search_endpoint"`

	// PresetsPath points at the TOML jailbreak preset table. Empty means
	// only the built-in default preset is available.
	PresetsPath string `toml:"presets_path"`

	// SkillsDBPath points at the SQLite team-skills database. Empty
	// disables the skills enricher.
	SkillsDBPath string `toml:"skills_db_path"`

	Proxy ProxySettings `toml:"proxy"`
}

// GeminiSettings configures the primary provider.
type GeminiSettings struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Model         string `toml:"model"`
	FallbackModel string `toml:"fallback_model"`
}

// OpenAISettings configures the alternate provider, used only when no
// Gemini key is present.
type OpenAISettings struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// ProxySettings routes outbound provider and search traffic through an
// explicit proxy. Environment proxy variables are never consulted.
type ProxySettings struct {
	Enable bool   `toml:"enable"`
	HTTP   string `toml:"http"`
	HTTPS  string `toml:"https"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     ":1338",
		SearchEndpoint: "https://ddg-api.herokuapp.com/search",
	}
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// upstreamTimeout bounds the connect/response phase of provider calls. The
// streaming read itself is not subject to it; the body is consumed after
// the response headers arrive.
const upstreamTimeout = 60 * time.Second

const searchTimeout = 10 * time.Second

// newTransport builds the outbound transport honoring the proxy settings.
func newTransport(p ProxySettings) (*http.Transport, error) {
	transport := &http.Transport{}
	if !p.Enable {
		return transport, nil
	}

	httpProxy, err := parseProxyURL(p.HTTP)
	if err != nil {
		return nil, err
	}
	httpsProxy, err := parseProxyURL(p.HTTPS)
	if err != nil {
		return nil, err
	}

	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != nil {
			return httpsProxy, nil
		}
		return httpProxy, nil
	}
	return transport, nil
}

func parseProxyURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}
	return u, nil
}
