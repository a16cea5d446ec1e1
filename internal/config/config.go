package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	_ "embed"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	"github.com/hsolanki/seochat/internal/errs"
)

//go:embed config_template.yml
var configTemplate string

// Model represents an LLM model used in the API call.
type Model struct {
	Name           string
	API            string
	MaxChars       int64    `yaml:"max-input-chars"`
	Aliases        []string `yaml:"aliases"`
	Fallback       string   `yaml:"fallback"`
	ThinkingBudget int      `yaml:"thinking-budget,omitempty"`
}

// API represents an API endpoint and its models.
type API struct {
	Name      string
	APIKey    string           `yaml:"api-key"`
	APIKeyEnv string           `yaml:"api-key-env"`
	APIKeyCmd string           `yaml:"api-key-cmd"`
	BaseURL   string           `yaml:"base-url"`
	Models    map[string]Model `yaml:"models"`
	User      string           `yaml:"user"`
}

// APIs is a type alias to allow custom YAML decoding.
type APIs []API

// UnmarshalYAML implements sorted API YAML decoding.
func (apis *APIs) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i < len(node.Content); i += 2 {
		var api API
		if err := node.Content[i+1].Decode(&api); err != nil {
			return fmt.Errorf("error decoding YAML file: %s", err)
		}
		api.Name = node.Content[i].Value
		*apis = append(*apis, api)
	}
	return nil
}

// ModelPrice is the USD price per 1,000 tokens for a model.
type ModelPrice struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// MCPServerConfig holds configuration for an MCP tool server.
type MCPServerConfig struct {
	Type    string   `yaml:"type"`
	Command string   `yaml:"command"`
	Env     []string `yaml:"env"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
	// AuthHeader is sent as the Authorization header on http/sse transports.
	AuthHeader string `yaml:"auth-header"`
	// Optional marks a server whose discovery failure should not abort the
	// session; remaining servers keep working and a warning is surfaced.
	Optional bool `yaml:"optional"`
}

// Settings holds persisted configuration loaded from the YAML settings file
// and environment variables.
type Settings struct {
	API                 string        `yaml:"default-api" env:"API"`
	Model               string        `yaml:"default-model" env:"MODEL"`
	Quiet               bool          `yaml:"quiet" env:"QUIET"`
	Raw                 bool          `yaml:"raw" env:"RAW"`
	MaxTokens           int64         `yaml:"max-tokens" env:"MAX_TOKENS"`
	MaxCompletionTokens int64         `yaml:"max-completion-tokens" env:"MAX_COMPLETION_TOKENS"`
	MaxInputChars       int64         `yaml:"max-input-chars" env:"MAX_INPUT_CHARS"`
	Temperature         float64       `yaml:"temp" env:"TEMP"`
	TopP                float64       `yaml:"topp" env:"TOPP"`
	TopK                int64         `yaml:"topk" env:"TOPK"`
	Stop                []string      `yaml:"stop" env:"STOP"`
	NoLimit             bool          `yaml:"no-limit" env:"NO_LIMIT"`
	MaxRetries          int           `yaml:"max-retries" env:"MAX_RETRIES"`
	WordWrap            int           `yaml:"word-wrap" env:"WORD_WRAP"`
	Fanciness           uint          `yaml:"fanciness" env:"FANCINESS"`
	StatusText          string        `yaml:"status-text" env:"STATUS_TEXT"`
	HTTPProxy           string        `yaml:"http-proxy" env:"HTTP_PROXY"`
	RequestTimeout      time.Duration `yaml:"request-timeout" env:"REQUEST_TIMEOUT"`
	APIs                APIs          `yaml:"apis"`
	User                string        `yaml:"user" env:"USER"`

	// System overrides the built-in SEO analyst instruction. It may be a raw
	// string, a file:// path, or an http(s) URL.
	System string `yaml:"system" env:"SYSTEM"`

	// DataPath is where tool usage stats and transcript exports live.
	DataPath string `yaml:"data-path" env:"DATA_PATH"`

	MCPServers      map[string]MCPServerConfig `yaml:"mcp-servers"`
	MCPDisable      []string                   `yaml:"mcp-disable" env:"MCP_DISABLE"`
	MCPTimeout      time.Duration              `yaml:"mcp-timeout" env:"MCP_TIMEOUT"`
	MCPNoInheritEnv bool                       `yaml:"mcp-no-inherit-env" env:"MCP_NO_INHERIT_ENV"`
	MCPAllowNonTTY  bool                       `yaml:"mcp-allow-non-tty" env:"MCP_ALLOW_NON_TTY"`

	// ToolTimeout bounds a single tool invocation.
	ToolTimeout time.Duration `yaml:"tool-timeout" env:"TOOL_TIMEOUT"`
	// MaxToolCalls caps tool invocations per turn, bounding model-driven
	// retries after normalized tool failures.
	MaxToolCalls int `yaml:"max-tool-calls" env:"MAX_TOOL_CALLS"`

	// Prices maps model names to USD pricing per 1,000 tokens.
	Prices map[string]ModelPrice `yaml:"prices"`
}

// Runtime holds CLI/runtime-only options that should not be loaded from the
// settings file.
type Runtime struct {
	ShowHelp     bool
	Version      bool
	Prefix       string
	SettingsPath string
}

// Config is the application configuration (settings + runtime-only options).
//
// Settings fields are promoted for ergonomic access, but runtime fields are
// explicitly excluded from YAML/env parsing.
type Config struct {
	Settings `yaml:",inline"`
	Runtime  `yaml:"-" env:"-"`
}

// Ensure loads settings from disk and environment and applies defaults.
//
// It also creates the default settings file if it does not exist.
func Ensure() (Config, error) {
	var c Config
	home, err := os.UserHomeDir()
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not determine home directory."}
	}

	sp := filepath.Join(home, ".config", "seochat", "seochat.yml")
	c.SettingsPath = sp

	dir := filepath.Dir(sp)
	if dirErr := os.MkdirAll(dir, 0o700); dirErr != nil {
		return c, errs.Error{Err: dirErr, Reason: "Could not create config directory."}
	}

	if dirErr := WriteConfigFile(sp); dirErr != nil {
		return c, dirErr
	}
	content, err := os.ReadFile(sp)
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse settings file."}
	}

	if err := env.ParseWithOptions(&c, env.Options{Prefix: "SEOCHAT_"}); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse environment into settings file."}
	}

	if c.DataPath == "" {
		c.DataPath = filepath.Join(home, ".config", "seochat", "data")
	}
	if err := os.MkdirAll(c.DataPath, 0o700); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not create data directory."}
	}

	ApplyDefaults(&c)
	return c, nil
}

// ApplyDefaults fills zero-valued settings with defaults.
func ApplyDefaults(c *Config) {
	def := Default()
	if c.WordWrap == 0 {
		c.WordWrap = def.WordWrap
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.MCPTimeout == 0 {
		c.MCPTimeout = def.MCPTimeout
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = def.ToolTimeout
	}
	if c.MaxToolCalls == 0 {
		c.MaxToolCalls = def.MaxToolCalls
	}
	if c.Prices == nil {
		c.Prices = def.Prices
	}
}

// WriteConfigFile creates the config file at path if it does not exist.
func WriteConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return errs.Error{Err: err, Reason: "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct{ Config Config }{Config: Default()}
	if err := tmpl.Execute(f, m); err != nil {
		return errs.Error{Err: err, Reason: "Could not render template."}
	}
	return nil
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Settings: Settings{
			API:          "openai",
			Model:        "gpt-4o-mini",
			WordWrap:     80,
			MaxRetries:   5,
			MCPTimeout:   15 * time.Second,
			ToolTimeout:  2 * time.Minute,
			MaxToolCalls: 25,
			Prices: map[string]ModelPrice{
				"gpt-5":       {Input: 2.00, Output: 10.00},
				"gpt-5-mini":  {Input: 0.60, Output: 2.40},
				"gpt-5.1":     {Input: 2.00, Output: 10.00},
				"gpt-4.1":     {Input: 0.50, Output: 1.50},
				"gpt-4o":      {Input: 0.005, Output: 0.015},
				"gpt-4o-mini": {Input: 0.00015, Output: 0.0006},
			},
		},
	}
}
