package agent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/go-shellwords"
	mmcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/hsolanki/seochat/internal/config"
	"github.com/hsolanki/seochat/internal/errs"
	"github.com/hsolanki/seochat/internal/fantasybridge"
	"github.com/hsolanki/seochat/internal/mcp"
	"github.com/hsolanki/seochat/internal/present"
	"github.com/hsolanki/seochat/internal/proto"
	"github.com/hsolanki/seochat/internal/storage"
	"github.com/hsolanki/seochat/internal/stream"
)

// Service is the core orchestration layer for starting LLM streams.
//
// It is intentionally UI-agnostic and can be used by both the TUI and headless
// commands.
type Service struct {
	cfg           *config.Config
	mcp           *mcp.Service
	stats         *storage.Stats
	clientFactory ClientFactory

	mu         sync.Mutex
	tools      map[string][]mmcp.Tool
	warnings   []string
	discovered bool
	rebuilds   int
}

// ClientFactory creates the provider client for a resolved configuration.
// Tests inject a factory to avoid real provider traffic.
type ClientFactory func(fantasybridge.Config) (stream.Client, error)

// New creates an agent service. stats may be nil to disable usage recording.
func New(cfg *config.Config, mcpSvc *mcp.Service, stats *storage.Stats, factory ...ClientFactory) *Service {
	if mcpSvc == nil {
		mcpSvc = mcp.New(cfg)
	}
	cf := ClientFactory(NewFantasyClient)
	if len(factory) > 0 && factory[0] != nil {
		cf = factory[0]
	}
	return &Service{cfg: cfg, mcp: mcpSvc, stats: stats, clientFactory: cf}
}

// StreamStart contains the stream plus metadata about the resolved request.
type StreamStart struct {
	Stream   stream.Stream
	Model    config.Model
	Messages []proto.Message
}

// Discover connects to the tool servers and caches the registry for the rest
// of the session. It returns one warning per optional server that was
// unreachable. Safe to call repeatedly; only the first call connects.
func (s *Service) Discover(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.discovered {
		return s.warnings, nil
	}

	toolsCtx, cancel := context.WithTimeout(ctx, s.cfg.MCPTimeout)
	defer cancel()
	tools, warnings, err := s.mcp.Tools(toolsCtx)
	if err != nil {
		return nil, fmt.Errorf("mcp tools: %w", err)
	}

	s.tools = tools
	s.warnings = warnings
	s.discovered = true
	return warnings, nil
}

// Tools returns the cached tool registry grouped by server.
func (s *Service) Tools() map[string][]mmcp.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tools
}

// SetModel switches the session to a different model, rebuilding the session
// state for the next turn. The transcript is kept; provider configuration is
// re-resolved on the next stream.
func (s *Service) SetModel(api, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if api != "" {
		s.cfg.API = api
	}
	s.cfg.Model = model
	s.rebuilds++
}

// Rebuilds returns how many times the session has been rebuilt by model
// changes.
func (s *Service) Rebuilds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuilds
}

// Stream starts a streaming completion for the first turn of a session.
func (s *Service) Stream(ctx context.Context, prompt string) (StreamStart, error) {
	return s.StreamContinue(ctx, nil, prompt)
}

// StreamContinue starts a streaming completion for the next turn, carrying
// the transcript so far. Each turn gets a fresh tool call budget.
func (s *Service) StreamContinue(ctx context.Context, history []proto.Message, prompt string) (StreamStart, error) {
	cfg := s.cfg

	api, mod, err := resolveModel(cfg)
	if err != nil {
		return StreamStart{}, err
	}
	// Keep runtime cfg in sync with resolved model.
	cfg.API = mod.API
	cfg.Model = mod.Name

	providerCfg, err := prepareProviderConfig(ctx, mod, api, cfg)
	if err != nil {
		return StreamStart{}, err
	}
	if err := ApplyProxyConfig(cfg.HTTPProxy, &providerCfg); err != nil {
		return StreamStart{}, err
	}

	if mod.MaxChars == 0 {
		mod.MaxChars = cfg.MaxInputChars
	}

	toolsEnabled := true
	if !cfg.MCPAllowNonTTY && !present.IsInputTTY() {
		toolsEnabled = false
	}

	var tools map[string][]mmcp.Tool
	if toolsEnabled {
		if _, err := s.Discover(ctx); err != nil {
			return StreamStart{}, err
		}
		tools = s.Tools()
	}

	messages, err := s.buildMessages(history, prompt, mod)
	if err != nil {
		return StreamStart{}, err
	}

	temperature := (*float64)(nil)
	if cfg.Temperature >= 0 {
		v := cfg.Temperature
		temperature = &v
	}
	topP := (*float64)(nil)
	if cfg.TopP >= 0 {
		v := cfg.TopP
		topP = &v
	}
	topK := (*int64)(nil)
	if cfg.TopK >= 0 {
		v := cfg.TopK
		topK = &v
	}

	request := proto.Request{
		Messages:    messages,
		API:         mod.API,
		Model:       mod.Name,
		User:        cfg.User,
		Temperature: temperature,
		TopP:        topP,
		TopK:        topK,
		Stop:        cfg.Stop,
		Tools:       tools,
	}
	if toolsEnabled {
		request.ToolCaller = s.newToolCaller()
	}

	// o1 models do not accept max_tokens.
	if cfg.MaxTokens > 0 && !strings.HasPrefix(mod.Name, "o1") {
		request.MaxTokens = &cfg.MaxTokens
	}
	if cfg.MaxCompletionTokens > 0 {
		request.MaxCompletionTokens = &cfg.MaxCompletionTokens
	}

	client, err := s.clientFactory(providerCfg)
	if err != nil {
		return StreamStart{}, err
	}

	st := client.Request(ctx, request)
	return StreamStart{Stream: st, Model: mod, Messages: messages}, nil
}

// newToolCaller builds the per-turn tool pipeline: budget, timeout, error
// normalization, and usage recording. The turn context flows through to the
// MCP call, so aborting the turn aborts the in-flight invocation.
func (s *Service) newToolCaller() stream.Caller {
	caller := stream.Middleware(
		stream.ToolOptions{
			Timeout:  s.cfg.ToolTimeout,
			MaxCalls: s.cfg.MaxToolCalls,
		},
		func(ctx context.Context, name string, data []byte) (string, error) {
			return s.mcp.CallTool(ctx, name, data)
		},
	)
	return func(ctx context.Context, name string, data []byte) (string, error) {
		start := time.Now()
		out, err := caller(ctx, name, data)
		if s.stats != nil {
			_ = s.stats.Record(name, int64(len(out)), time.Since(start), err != nil)
		}
		return out, err
	}
}

func (s *Service) buildMessages(history []proto.Message, prompt string, mod config.Model) ([]proto.Message, error) {
	cfg := s.cfg
	messages := make([]proto.Message, 0, len(history)+2)

	if len(history) == 0 {
		instruction := defaultInstruction
		if cfg.System != "" {
			content, err := config.LoadMsg(cfg.System)
			if err != nil {
				return nil, errs.Error{Err: err, Reason: "Could not load the system message"}
			}
			instruction = content
		}
		messages = append(messages, proto.Message{Role: proto.RoleSystem, Content: instruction})
	} else {
		messages = append(messages, history...)
	}

	if prefix := cfg.Prefix; prefix != "" {
		prompt = strings.TrimSpace(prefix + "\n\n" + prompt)
	}

	if !cfg.NoLimit && mod.MaxChars > 0 && int64(len(prompt)) > mod.MaxChars {
		prompt = prompt[:mod.MaxChars]
	}

	messages = append(messages, proto.Message{Role: proto.RoleUser, Content: prompt})
	return messages, nil
}

func resolveModel(cfg *config.Config) (config.API, config.Model, error) {
	for _, api := range cfg.APIs {
		if api.Name != cfg.API && cfg.API != "" {
			continue
		}
		for name, mod := range api.Models {
			if name == cfg.Model || slices.Contains(mod.Aliases, cfg.Model) {
				cfg.Model = name
				break
			}
		}
		mod, ok := api.Models[cfg.Model]
		if ok {
			mod.Name = cfg.Model
			mod.API = api.Name
			return api, mod, nil
		}
		if cfg.API != "" {
			available := make([]string, 0, len(api.Models))
			for name := range api.Models {
				available = append(available, name)
			}
			slices.Sort(available)
			return config.API{}, config.Model{}, errs.Error{
				Err:    errs.UserErrorf("Available models are: %s", strings.Join(available, ", ")),
				Reason: fmt.Sprintf("The API endpoint %s does not contain the model %s", cfg.API, cfg.Model),
			}
		}
	}

	return config.API{}, config.Model{}, errs.Error{
		Reason: fmt.Sprintf("Model %s is not in the settings file.", cfg.Model),
		Err:    errs.UserErrorf("Please specify an API endpoint with --api or configure the model in the settings: seochat config"),
	}
}

func prepareProviderConfig(ctx context.Context, mod config.Model, api config.API, cfg *config.Config) (fantasybridge.Config, error) {
	switch mod.API {
	case "ollama":
		baseURL := api.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		return fantasybridge.Config{API: mod.API, BaseURL: baseURL}, nil
	case "anthropic":
		key, err := ensureKey(ctx, api, "ANTHROPIC_API_KEY", "https://console.anthropic.com/settings/keys")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Anthropic authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL}, nil
	case "google":
		key, err := ensureKey(ctx, api, "GOOGLE_API_KEY", "https://aistudio.google.com/app/apikey")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Google authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL, ThinkingBudget: mod.ThinkingBudget}, nil
	default:
		key, err := ensureKey(ctx, api, "OPENAI_API_KEY", "https://platform.openai.com/account/api-keys")
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "OpenAI authentication failed"}
		}
		return fantasybridge.Config{API: mod.API, APIKey: key, BaseURL: api.BaseURL}, nil
	}
}

// ApplyProxyConfig configures the provider HTTP client to use an HTTP proxy.
func ApplyProxyConfig(httpProxy string, providerCfg *fantasybridge.Config) error {
	if httpProxy == "" {
		return nil
	}
	proxyURL, err := url.Parse(httpProxy)
	if err != nil {
		return errs.Error{Err: err, Reason: "There was an error parsing your proxy URL."}
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return errs.Error{Err: fmt.Errorf("default transport is not *http.Transport"), Reason: "Could not configure proxy."}
	}
	tr := base.Clone()
	tr.Proxy = http.ProxyURL(proxyURL)
	// Ensure we have sensible transport timeouts even when upstream SDKs don't.
	tr.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 30 * time.Second
	tr.IdleConnTimeout = 90 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second
	providerCfg.HTTPClient = &http.Client{Transport: tr}
	return nil
}

// NewFantasyClient creates the fantasy bridge client.
func NewFantasyClient(cfg fantasybridge.Config) (stream.Client, error) {
	if cfg.API == "" {
		return nil, errs.Error{Reason: "missing fantasy provider configuration"}
	}
	client, err := fantasybridge.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("new fantasy bridge client: %w", err)
	}
	return client, nil
}

func ensureKey(ctx context.Context, api config.API, defaultEnv, docsURL string) (string, error) {
	key := api.APIKey
	if key == "" && api.APIKeyEnv != "" && api.APIKeyCmd == "" {
		key = os.Getenv(api.APIKeyEnv)
	}
	if key == "" && api.APIKeyCmd != "" {
		args, err := shellwords.Parse(api.APIKeyCmd)
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Failed to parse api-key-cmd"}
		}
		// #nosec G204 -- api-key-cmd is explicitly configured by the local user.
		out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Cannot exec api-key-cmd"}
		}
		key = strings.TrimSpace(string(out))
	}
	if key == "" {
		key = os.Getenv(defaultEnv)
	}
	if key != "" {
		return key, nil
	}
	return "", errs.Error{
		Reason: fmt.Sprintf("%s required; set %s or update seochat.yml through seochat config.", defaultEnv, defaultEnv),
		Err:    errs.UserErrorf("You can grab one at %s", docsURL),
	}
}
