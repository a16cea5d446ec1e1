// Package cmd wires the seochat CLI: the interactive chat session, the
// headless ask mode, and the supporting tool/stats/config commands.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	glamour "github.com/charmbracelet/glamour/styles"
	"github.com/spf13/cobra"

	"github.com/hsolanki/seochat/internal/agent"
	"github.com/hsolanki/seochat/internal/config"
	"github.com/hsolanki/seochat/internal/errs"
	"github.com/hsolanki/seochat/internal/present"
	"github.com/hsolanki/seochat/internal/storage"
	"github.com/hsolanki/seochat/internal/tui"
)

type runtime struct {
	build  BuildInfo
	cfg    config.Config
	cfgErr error
}

// NewRootCmd constructs the Cobra root command.
func NewRootCmd(build BuildInfo, cfg config.Config, cfgErr error) *cobra.Command {
	// XXX: unset error styles in Glamour dark and light styles.
	glamour.DarkStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)
	glamour.LightStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)

	rt := &runtime{build: normalizeBuildInfo(build), cfg: cfg, cfgErr: cfgErr}

	rootCmd := &cobra.Command{
		Use:           "seochat [initial question]",
		Short:         "Chat with an SEO analyst that can query live search data.",
		Long: "Start an interactive session with an SEO agent backed by DataForSEO and " +
			"Google Search Console tools. Type /exit or press Ctrl+C to quit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       randomExample(),
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			if rt.cfg.ShowHelp {
				drainStdin()
				return cmd.Usage()
			}
			// Piped input runs one headless turn, TTY input starts the session.
			if !present.IsInputTTY() || rt.cfg.Raw {
				return rt.runAsk(cmd.Context(), args)
			}
			return rt.runChat(cmd.Context(), args)
		},
	}

	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.Version = rt.build.Version
	rootCmd.SetVersionTemplate(versionTemplate(rt.build))

	initRootFlags(rootCmd, &rt.cfg)

	// Commands.
	rootCmd.AddCommand(newAskCmd(rt))
	rootCmd.AddCommand(newToolsCmd(rt))
	rootCmd.AddCommand(newStatsCmd(rt))
	rootCmd.AddCommand(newMCPCmd(rt))
	rootCmd.AddCommand(newConfigCmd(rt))
	rootCmd.AddCommand(newManCmd(rootCmd))

	// Enable completion now that we have subcommands.
	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

func (rt *runtime) runChat(ctx context.Context, args []string) error {
	initialPrompt := strings.TrimSpace(strings.Join(args, " "))

	stats, err := storage.OpenStats(rt.cfg.DataPath)
	if err != nil {
		return errs.Wrap(err, "Could not open the tool usage store.")
	}
	defer stats.Close() //nolint:errcheck

	exports, err := storage.NewExports(rt.cfg.DataPath)
	if err != nil {
		return errs.Wrap(err, "Could not prepare the transcript export directory.")
	}

	agentSvc := agent.New(&rt.cfg, nil, stats)

	chat := tui.NewChat(ctx, present.StderrRenderer(), &rt.cfg, agentSvc, exports, initialPrompt)

	p := tea.NewProgram(chat, tea.WithAltScreen(), tea.WithOutput(os.Stderr))
	m, err := p.Run()
	if err != nil {
		return errs.Wrap(err, "Couldn't start the chat program.")
	}

	c := m.(*tui.Chat)
	if c.Error != nil {
		return *c.Error
	}
	return nil
}
