package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hsolanki/seochat/internal/config"
	"github.com/hsolanki/seochat/internal/present"
)

func initRootFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, present.StdoutStyles().FlagDesc.Render(helpText["model"]))
	flags.StringVarP(&cfg.API, "api", "a", cfg.API, present.StdoutStyles().FlagDesc.Render(helpText["api"]))
	flags.StringVarP(&cfg.HTTPProxy, "http-proxy", "x", cfg.HTTPProxy, present.StdoutStyles().FlagDesc.Render(helpText["http-proxy"]))
	flags.BoolVarP(&cfg.Raw, "raw", "r", cfg.Raw, present.StdoutStyles().FlagDesc.Render(helpText["raw"]))
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, present.StdoutStyles().FlagDesc.Render(helpText["quiet"]))
	flags.BoolVarP(&cfg.ShowHelp, "help", "h", false, present.StdoutStyles().FlagDesc.Render(helpText["help"]))
	flags.BoolVarP(&cfg.Version, "version", "v", false, present.StdoutStyles().FlagDesc.Render(helpText["version"]))
	flags.StringVar(&cfg.System, "system", cfg.System, present.StdoutStyles().FlagDesc.Render(helpText["system"]))
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, present.StdoutStyles().FlagDesc.Render(helpText["max-retries"]))
	flags.BoolVar(&cfg.NoLimit, "no-limit", cfg.NoLimit, present.StdoutStyles().FlagDesc.Render(helpText["no-limit"]))
	flags.Int64Var(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, present.StdoutStyles().FlagDesc.Render(helpText["max-tokens"]))
	flags.Int64Var(&cfg.MaxCompletionTokens, "max-completion-tokens", cfg.MaxCompletionTokens, present.StdoutStyles().FlagDesc.Render(helpText["max-completion-tokens"]))
	flags.IntVar(&cfg.WordWrap, "word-wrap", cfg.WordWrap, present.StdoutStyles().FlagDesc.Render(helpText["word-wrap"]))
	flags.Float64Var(&cfg.Temperature, "temp", cfg.Temperature, present.StdoutStyles().FlagDesc.Render(helpText["temp"]))
	flags.StringArrayVar(&cfg.Stop, "stop", cfg.Stop, present.StdoutStyles().FlagDesc.Render(helpText["stop"]))
	flags.Float64Var(&cfg.TopP, "topp", cfg.TopP, present.StdoutStyles().FlagDesc.Render(helpText["topp"]))
	flags.Int64Var(&cfg.TopK, "topk", cfg.TopK, present.StdoutStyles().FlagDesc.Render(helpText["topk"]))
	flags.UintVar(&cfg.Fanciness, "fanciness", cfg.Fanciness, present.StdoutStyles().FlagDesc.Render(helpText["fanciness"]))
	flags.StringVar(&cfg.StatusText, "status-text", cfg.StatusText, present.StdoutStyles().FlagDesc.Render(helpText["status-text"]))
	flags.Var(newDurationFlag(cfg.RequestTimeout, &cfg.RequestTimeout), "request-timeout", present.StdoutStyles().FlagDesc.Render(helpText["request-timeout"]))
	flags.Var(newDurationFlag(cfg.ToolTimeout, &cfg.ToolTimeout), "tool-timeout", present.StdoutStyles().FlagDesc.Render(helpText["tool-timeout"]))
	flags.IntVar(&cfg.MaxToolCalls, "max-tool-calls", cfg.MaxToolCalls, present.StdoutStyles().FlagDesc.Render(helpText["max-tool-calls"]))
	flags.Var(newDurationFlag(cfg.MCPTimeout, &cfg.MCPTimeout), "mcp-timeout", present.StdoutStyles().FlagDesc.Render(helpText["mcp-timeout"]))
	flags.StringArrayVar(&cfg.MCPDisable, "mcp-disable", nil, present.StdoutStyles().FlagDesc.Render(helpText["mcp-disable"]))
	flags.BoolVar(&cfg.MCPNoInheritEnv, "mcp-no-inherit-env", cfg.MCPNoInheritEnv, present.StdoutStyles().FlagDesc.Render(helpText["mcp-no-inherit-env"]))
	flags.BoolVar(&cfg.MCPAllowNonTTY, "mcp-allow-non-tty", cfg.MCPAllowNonTTY, present.StdoutStyles().FlagDesc.Render(helpText["mcp-allow-non-tty"]))
	flags.SortFlags = false

	flags.BoolVar(&memprofile, "memprofile", false, "Write memory profiles to CWD")
	_ = flags.MarkHidden("memprofile")

	_ = cmd.RegisterFlagCompletionFunc("api", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(cfg.APIs))
		for _, api := range cfg.APIs {
			names = append(names, api.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("model", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, api := range cfg.APIs {
			if cfg.API != "" && api.Name != cfg.API {
				continue
			}
			for name := range api.Models {
				names = append(names, name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}
