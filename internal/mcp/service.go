// Package mcp connects to the configured SEO tool servers and exposes
// discovery and tool execution to the agent.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/hsolanki/seochat/internal/config"
	"github.com/hsolanki/seochat/internal/errs"
	"github.com/hsolanki/seochat/internal/stream"
)

// Service provides access to MCP server discovery and tool execution.
type Service struct {
	cfg *config.Config
}

// New creates a new MCP service.
func New(cfg *config.Config) *Service {
	return &Service{cfg: cfg}
}

// IsEnabled reports whether the named MCP server is enabled.
func (s *Service) IsEnabled(name string) bool {
	return !slices.Contains(s.cfg.MCPDisable, "*") &&
		!slices.Contains(s.cfg.MCPDisable, name)
}

// EnabledServers iterates enabled MCP servers in stable order.
func (s *Service) EnabledServers() iter.Seq2[string, config.MCPServerConfig] {
	return func(yield func(string, config.MCPServerConfig) bool) {
		names := slices.Collect(maps.Keys(s.cfg.MCPServers))
		slices.Sort(names)
		for _, name := range names {
			if !s.IsEnabled(name) {
				continue
			}
			if !yield(name, s.cfg.MCPServers[name]) {
				return
			}
		}
	}
}

// Tools returns tools grouped by server name, plus a warning per optional
// server that could not be reached. A failing optional server degrades the
// session to the remaining servers instead of aborting it; a failing required
// server is an error.
func (s *Service) Tools(ctx context.Context) (map[string][]mcp.Tool, []string, error) {
	var mu sync.Mutex
	var wg errgroup.Group
	result := map[string][]mcp.Tool{}
	var warnings []string
	for sname, server := range s.EnabledServers() {
		wg.Go(func() error {
			serverTools, err := toolsFor(ctx, s.cfg, sname, server)
			if err != nil {
				if server.Optional {
					mu.Lock()
					warnings = append(warnings, fmt.Sprintf(
						"%s is unavailable (%s); continuing without its tools", sname, rootReason(err),
					))
					mu.Unlock()
					return nil
				}
				if errors.Is(err, context.DeadlineExceeded) {
					return errs.Wrap(
						fmt.Errorf("timeout while listing tools for %q - make sure the configuration is correct. If your server requires a docker container, make sure it's running", sname),
						"Could not list tools",
					)
				}
				return errs.Wrap(err, "Could not list tools")
			}
			mu.Lock()
			result[sname] = append(result[sname], serverTools...)
			mu.Unlock()
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, nil, fmt.Errorf("mcp tools: %w", err)
	}
	return result, warnings, nil
}

// CallTool executes a tool call against the configured server.
// fullName must be of the form: <server>_<tool>.
func (s *Service) CallTool(ctx context.Context, fullName string, data []byte) (string, error) {
	sname, tool, ok := strings.Cut(fullName, "_")
	if !ok {
		return "", fmt.Errorf("mcp: invalid tool name: %q", fullName)
	}
	server, ok := s.cfg.MCPServers[sname]
	if !ok {
		return "", fmt.Errorf("mcp: invalid server name: %q", sname)
	}
	if !s.IsEnabled(sname) {
		return "", fmt.Errorf("mcp: server is disabled: %q", sname)
	}
	cli, err := initClient(ctx, s.cfg, server)
	if err != nil {
		return "", &stream.TransportError{Server: sname, Err: err}
	}
	defer cli.Close() //nolint:errcheck

	var args map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &args); err != nil {
			return "", fmt.Errorf("mcp: %w: %s", err, string(data))
		}
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = tool
	request.Params.Arguments = args
	result, err := cli.CallTool(ctx, request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &stream.TransportError{Server: sname, Err: err}
	}

	var sb strings.Builder
	for _, content := range result.Content {
		switch content := content.(type) {
		case mcp.TextContent:
			sb.WriteString(content.Text)
		default:
			sb.WriteString("[Non-text content]")
		}
	}

	if result.IsError {
		return "", errors.New(sb.String())
	}
	return sb.String(), nil
}

func initClient(ctx context.Context, cfg *config.Config, server config.MCPServerConfig) (*client.Client, error) {
	var cli *client.Client
	var err error

	switch server.Type {
	case "", "stdio":
		env := server.Env
		if cfg != nil && !cfg.MCPNoInheritEnv {
			env = append(os.Environ(), server.Env...)
		}
		cli, err = client.NewStdioMCPClient(
			server.Command,
			env,
			server.Args...,
		)
	case "sse":
		var opts []transport.ClientOption
		if server.AuthHeader != "" {
			opts = append(opts, transport.WithHeaders(map[string]string{
				"Authorization": server.AuthHeader,
			}))
		}
		cli, err = client.NewSSEMCPClient(server.URL, opts...)
	case "http":
		var opts []transport.StreamableHTTPCOption
		if server.AuthHeader != "" {
			opts = append(opts, transport.WithHTTPHeaders(map[string]string{
				"Authorization": server.AuthHeader,
			}))
		}
		cli, err = client.NewStreamableHttpClient(server.URL, opts...)
	default:
		return nil, fmt.Errorf("unsupported MCP server type: %q, supported types are: stdio, sse, http", server.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := cli.Start(ctx); err != nil {
		cli.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	if _, err := cli.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		cli.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	return cli, nil
}

func toolsFor(ctx context.Context, cfg *config.Config, name string, server config.MCPServerConfig) ([]mcp.Tool, error) {
	cli, err := initClient(ctx, cfg, server)
	if err != nil {
		return nil, fmt.Errorf("could not setup %s: %w", name, err)
	}
	defer cli.Close() //nolint:errcheck

	tools, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("could not setup %s: %w", name, err)
	}
	return tools.Tools, nil
}

func rootReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	root := err
	for errors.Unwrap(root) != nil {
		root = errors.Unwrap(root)
	}
	return root.Error()
}
