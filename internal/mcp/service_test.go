package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hsolanki/seochat/internal/config"
)

func TestIsEnabled(t *testing.T) {
	cfg := &config.Config{Settings: config.Settings{
		MCPServers: map[string]config.MCPServerConfig{
			"dataforseo": {Type: "http", URL: "https://example.test/mcp"},
			"gsc":        {Command: "gsc-mcp-server"},
		},
	}}

	t.Run("enabled by default", func(t *testing.T) {
		s := New(cfg)
		require.True(t, s.IsEnabled("dataforseo"))
		require.True(t, s.IsEnabled("gsc"))
	})

	t.Run("disable one", func(t *testing.T) {
		c := *cfg
		c.MCPDisable = []string{"dataforseo"}
		s := New(&c)
		require.False(t, s.IsEnabled("dataforseo"))
		require.True(t, s.IsEnabled("gsc"))
	})

	t.Run("disable all", func(t *testing.T) {
		c := *cfg
		c.MCPDisable = []string{"*"}
		s := New(&c)
		require.False(t, s.IsEnabled("dataforseo"))
		require.False(t, s.IsEnabled("gsc"))
	})
}

func TestEnabledServers(t *testing.T) {
	cfg := &config.Config{Settings: config.Settings{
		MCPServers: map[string]config.MCPServerConfig{
			"gsc":        {Command: "gsc-mcp-server"},
			"dataforseo": {Type: "http", URL: "https://example.test/mcp"},
		},
		MCPDisable: []string{"gsc"},
	}}

	var names []string
	for name := range New(cfg).EnabledServers() {
		names = append(names, name)
	}
	require.Equal(t, []string{"dataforseo"}, names)
}

func TestCallToolValidation(t *testing.T) {
	s := New(&config.Config{Settings: config.Settings{
		MCPServers: map[string]config.MCPServerConfig{
			"gsc": {Command: "gsc-mcp-server"},
		},
		MCPDisable: []string{"gsc"},
	}})

	t.Run("unqualified name", func(t *testing.T) {
		_, err := s.CallTool(context.Background(), "summary", nil)
		require.ErrorContains(t, err, "invalid tool name")
	})

	t.Run("unknown server", func(t *testing.T) {
		_, err := s.CallTool(context.Background(), "nope_summary", nil)
		require.ErrorContains(t, err, "invalid server name")
	})

	t.Run("disabled server", func(t *testing.T) {
		_, err := s.CallTool(context.Background(), "gsc_search_analytics", nil)
		require.ErrorContains(t, err, "server is disabled")
	})
}

func TestToolsOptionalFallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("optional failure degrades to a warning", func(t *testing.T) {
		s := New(&config.Config{Settings: config.Settings{
			MCPServers: map[string]config.MCPServerConfig{
				"dataforseo": {Command: "seochat-no-such-binary", Optional: true},
			},
		}})
		tools, warnings, err := s.Tools(ctx)
		require.NoError(t, err)
		require.Empty(t, tools)
		require.Len(t, warnings, 1)
		require.Contains(t, warnings[0], "dataforseo is unavailable")
	})

	t.Run("required failure aborts", func(t *testing.T) {
		s := New(&config.Config{Settings: config.Settings{
			MCPServers: map[string]config.MCPServerConfig{
				"gsc": {Command: "seochat-no-such-binary"},
			},
		}})
		_, _, err := s.Tools(ctx)
		require.Error(t, err)
	})
}
