package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hsolanki/seochat/internal/agent"
	"github.com/hsolanki/seochat/internal/errs"
	"github.com/hsolanki/seochat/internal/present"
	"github.com/hsolanki/seochat/internal/storage"
	"github.com/hsolanki/seochat/internal/stream"
	"github.com/hsolanki/seochat/internal/usage"
)

func newAskCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the answer",
		Long:  "Run a single headless turn. The question comes from the arguments and/or piped stdin; the answer is printed to stdout.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return rt.runAsk(cmd.Context(), args)
		},
	}
}

func (rt *runtime) runAsk(ctx context.Context, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if piped := readStdin(); piped != "" {
		// Piped content is context, the arguments are the question about it.
		if prompt == "" {
			prompt = piped
		} else {
			prompt = piped + "\n\n" + prompt
		}
	}
	if prompt == "" {
		return errs.Error{
			Reason: "You haven't asked anything.",
			Err: errs.UserErrorf(
				"Give your question as arguments and/or pipe data from stdin.\nExample: %s",
				present.StdoutStyles().InlineCode.Render(`seochat ask "audit the backlinks of example.com"`),
			),
		}
	}

	stats, err := storage.OpenStats(rt.cfg.DataPath)
	if err != nil {
		return errs.Wrap(err, "Could not open the tool usage store.")
	}
	defer stats.Close() //nolint:errcheck

	agentSvc := agent.New(&rt.cfg, nil, stats)

	res, err := agentSvc.Stream(ctx, prompt)
	if err != nil {
		return err
	}
	st := res.Stream
	defer st.Close() //nolint:errcheck

	tracker := usage.NewTracker(rt.cfg.Prices)
	streamed := !present.IsOutputTTY() || rt.cfg.Raw

	var output strings.Builder
	for {
		for st.Next() {
			chunk, err := st.Current()
			if err != nil {
				if errors.Is(err, stream.ErrNoContent) {
					continue
				}
				return errs.Wrap(err, "There was a problem reading the response.")
			}
			if chunk.ToolStart != nil && !rt.cfg.Quiet {
				fmt.Fprintln(os.Stderr, present.StderrStyles().Comment.Render("Calling "+chunk.ToolStart.Function.Name+"..."))
			}
			output.WriteString(chunk.Content)
			if streamed {
				fmt.Print(chunk.Content)
			}
		}
		if err := st.Err(); err != nil {
			return errs.Wrap(err, "There was a problem with the model request.")
		}
		if !rt.cfg.Quiet {
			for _, warning := range st.DrainWarnings() {
				fmt.Fprintln(os.Stderr, present.StderrStyles().Comment.Render("Warning: "+warning))
			}
		}

		statuses := st.CallTools()
		if len(statuses) == 0 {
			break
		}
		if !rt.cfg.Quiet {
			for _, status := range statuses {
				fmt.Fprint(os.Stderr, present.StderrStyles().Comment.Render(status.String()))
			}
		}
	}

	tracker.Record(res.Model.Name, st.Usage())

	if streamed {
		fmt.Println()
	} else {
		rendered, err := present.RenderMarkdownForTTY(output.String(), rt.cfg.WordWrap)
		if err != nil {
			rendered = output.String()
		}
		fmt.Print(rendered)
	}

	if !rt.cfg.Quiet {
		if summary := tracker.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, present.StderrStyles().Timeago.Render(summary))
		}
	}
	return nil
}
