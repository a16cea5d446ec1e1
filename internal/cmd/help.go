package cmd

// helpText holds the one-line descriptions for root flags.
var helpText = map[string]string{
	"model":                 "Model to use (name or alias from the settings file)",
	"api":                   "API endpoint to use (openai, anthropic, google, ollama, ...)",
	"http-proxy":            "HTTP proxy for API requests",
	"raw":                   "Print raw markdown, without terminal rendering",
	"quiet":                 "Only output errors and the answer itself",
	"help":                  "Show help and exit",
	"version":               "Show version and exit",
	"max-retries":           "Maximum number of times to retry API calls",
	"no-limit":              "Turn off the prompt character limit",
	"max-tokens":            "Maximum number of tokens in the answer",
	"max-completion-tokens": "Maximum number of completion tokens (reasoning models)",
	"word-wrap":             "Wrap formatted output at this width (0 disables)",
	"temp":                  "Sampling temperature",
	"stop":                  "Up to 4 stop sequences where generation stops",
	"topp":                  "Nucleus sampling top-p",
	"topk":                  "Sampling top-k",
	"fanciness":             "Level of fanciness of the loading animation",
	"status-text":           "Text to show while the model is thinking",
	"system":                "System instruction override (string, file://, or http(s) URL)",
	"request-timeout":       "Timeout for one full model turn, e.g. 2m",
	"tool-timeout":          "Timeout for a single SEO tool invocation, e.g. 30s",
	"max-tool-calls":        "Maximum tool invocations per turn",
	"mcp-timeout":           "Timeout for tool server discovery",
	"mcp-disable":           "Disable specific tool servers, or use \"*\" to disable all",
	"mcp-no-inherit-env":    "Do not pass the local environment to stdio tool servers",
	"mcp-allow-non-tty":     "Allow tool use when stdin is not a TTY",
}
