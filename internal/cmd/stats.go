package cmd

import (
	"fmt"
	"os"
	"time"

	timeago "github.com/caarlos0/timea.go"
	"github.com/spf13/cobra"

	"github.com/hsolanki/seochat/internal/errs"
	"github.com/hsolanki/seochat/internal/present"
	"github.com/hsolanki/seochat/internal/storage"
)

func newStatsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tool usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			drainStdin()
			return printStats(rt.cfg.DataPath)
		},
	}
}

func printStats(dataPath string) error {
	stats, err := storage.OpenStats(dataPath)
	if err != nil {
		return errs.Wrap(err, "Could not open the tool usage store.")
	}
	defer stats.Close() //nolint:errcheck

	items := stats.List()
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "No tool calls recorded yet.")
		return nil
	}

	styles := present.StdoutStyles()
	for _, st := range items {
		line := fmt.Sprintf(
			"%s\t%d calls",
			styles.Flag.Render(st.Tool),
			st.Calls,
		)
		if st.Errors > 0 {
			line += fmt.Sprintf(", %d failed", st.Errors)
		}
		line += fmt.Sprintf(", %s, avg %s", humanBytes(st.Bytes), avgElapsed(st))
		line += styles.Timeago.Render("\tlast used " + timeago.Of(st.LastUsed))
		fmt.Println(line)
	}
	return nil
}

func avgElapsed(st storage.ToolStats) time.Duration {
	if st.Calls == 0 {
		return 0
	}
	return (st.Elapsed / time.Duration(st.Calls)).Round(time.Millisecond)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
