package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/hsolanki/seochat/internal/present"
)

func drainStdin() {
	if present.IsInputTTY() {
		return
	}
	_, _ = io.Copy(io.Discard, os.Stdin)
}

// readStdin returns piped input, trimmed, or "" when stdin is a TTY.
func readStdin() string {
	if present.IsInputTTY() {
		return ""
	}
	bts, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(bts))
}
