package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	mmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/hsolanki/seochat/internal/config"
	imcp "github.com/hsolanki/seochat/internal/mcp"
	"github.com/hsolanki/seochat/internal/present"
)

func newMCPCmd(rt *runtime) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Tool server integration",
	}

	mcpCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured tool servers",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			mcpList(&rt.cfg)
			return nil
		},
	})

	mcpCmd.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "List tools from enabled tool servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), rt.cfg.MCPTimeout)
			defer cancel()
			return mcpListTools(ctx, &rt.cfg)
		},
	})

	return mcpCmd
}

func mcpList(cfg *config.Config) {
	svc := imcp.New(cfg)
	names := slices.Collect(maps.Keys(cfg.MCPServers))
	slices.Sort(names)
	for _, name := range names {
		s := name
		if cfg.MCPServers[name].Optional {
			s += present.StdoutStyles().Comment.Render(" (optional)")
		}
		if svc.IsEnabled(name) {
			s += present.StdoutStyles().Timeago.Render(" (enabled)")
		}
		fmt.Println(s)
	}
}

func mcpListTools(ctx context.Context, cfg *config.Config) error {
	svc := imcp.New(cfg)
	servers, warnings, err := svc.Tools(ctx)
	if err != nil {
		return fmt.Errorf("mcp list tools: %w", err)
	}
	for _, warning := range warnings {
		fmt.Fprintln(os.Stderr, present.StderrStyles().Comment.Render("Warning: "+warning))
	}

	names := slices.Collect(maps.Keys(servers))
	slices.Sort(names)
	for _, sname := range names {
		tools := servers[sname]
		slices.SortFunc(tools, func(a, b mmcp.Tool) int { return strings.Compare(a.Name, b.Name) })
		for _, tool := range tools {
			_, _ = fmt.Fprint(os.Stdout, present.StdoutStyles().Timeago.Render(sname+" > "))
			_, _ = fmt.Fprintln(os.Stdout, tool.Name)
		}
	}
	return nil
}
