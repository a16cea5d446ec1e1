package cmd

import (
	"context"
	"fmt"
	"os"

	strings1 "github.com/charmbracelet/x/exp/strings"
	mmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/hsolanki/seochat/internal/agent"
	"github.com/hsolanki/seochat/internal/catalog"
	"github.com/hsolanki/seochat/internal/errs"
	"github.com/hsolanki/seochat/internal/present"
)

func newToolsCmd(rt *runtime) *cobra.Command {
	var live bool
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the SEO tools the agent can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			drainStdin()
			if live {
				return listLiveTools(cmd.Context(), rt)
			}
			listCatalogTools()
			return nil
		},
	}
	toolsCmd.Flags().BoolVar(&live, "live", false, "Query the configured tool servers instead of the built-in catalog")
	return toolsCmd
}

// listCatalogTools prints the static catalog, grouped by category.
func listCatalogTools() {
	styles := present.StdoutStyles()
	names := make([]string, 0, len(catalog.Categories()))
	for _, cat := range catalog.Categories() {
		names = append(names, cat.Name)
	}
	fmt.Println(styles.Comment.Render(fmt.Sprintf(
		"%d tools across %s.", catalog.Size(), strings1.EnglishJoin(names, true),
	)))
	fmt.Println()

	for _, cat := range catalog.Categories() {
		fmt.Println(styles.AppName.Render(cat.Name))
		for _, tool := range cat.Tools {
			fmt.Printf("  %s  %s\n", styles.Flag.Render(tool.Name), styles.FlagDesc.Render(tool.Description))
		}
		fmt.Println()
	}
}

// listLiveTools queries the configured servers and reconciles the result with
// the catalog so known tools keep their category grouping.
func listLiveTools(ctx context.Context, rt *runtime) error {
	agentSvc := agent.New(&rt.cfg, nil, nil)
	warnings, err := agentSvc.Discover(ctx)
	if err != nil {
		return errs.Wrap(err, "Could not reach the tool servers.")
	}
	for _, warning := range warnings {
		fmt.Fprintln(os.Stderr, present.StderrStyles().Comment.Render("Warning: "+warning))
	}

	styles := present.StdoutStyles()
	var all []mmcp.Tool
	for _, tools := range agentSvc.Tools() {
		all = append(all, tools...)
	}
	flat := catalog.Reconcile(all)
	if len(flat) == 0 {
		fmt.Fprintln(os.Stderr, "No tools reported by the enabled servers.")
		return nil
	}

	lastCategory := ""
	for _, d := range flat {
		if d.Category != lastCategory {
			fmt.Println(styles.AppName.Render(d.Category))
			lastCategory = d.Category
		}
		name := d.Name
		if !d.Known {
			name += styles.Timeago.Render(" (uncatalogued)")
		}
		fmt.Printf("  %s  %s\n", styles.Flag.Render(name), styles.FlagDesc.Render(d.Description))
	}
	return nil
}
