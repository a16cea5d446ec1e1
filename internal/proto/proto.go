// Package proto defines the provider-agnostic chat protocol types shared by
// the agent, the fantasy bridge, and the TUI.
package proto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single transcript entry. A transcript is an ordered slice of
// messages and only grows within a session.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a tool invocation requested by the model. It is created once
// per request and consumed exactly once by the MCP layer.
type ToolCall struct {
	ID       string   `json:"id"`
	IsError  bool     `json:"is_error,omitempty"`
	Function Function `json:"function"`
}

// Function holds the tool name and its JSON-encoded arguments.
type Function struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolCallStatus is the resolved outcome of one tool call, correlated to its
// invocation by ID.
type ToolCallStatus struct {
	ID      string
	Name    string
	Args    json.RawMessage
	Content string
	IsError bool
	Elapsed time.Duration
}

// String renders the status for plain (non-TUI) output.
func (s ToolCallStatus) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n> **Tool**: %s", s.Name)
	if len(s.Args) > 0 {
		fmt.Fprintf(&sb, " `%s`", compactArgs(s.Args))
	}
	if s.IsError {
		fmt.Fprintf(&sb, "\n> %s\n\n", s.Content)
		return sb.String()
	}
	fmt.Fprintf(&sb, "\n> completed in %s\n\n", s.Elapsed.Round(time.Millisecond))
	return sb.String()
}

const maxInlineArgChars = 120

func compactArgs(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	out := buf.String()
	if len(out) > maxInlineArgChars {
		out = out[:maxInlineArgChars] + "…"
	}
	return out
}

// Chunk is one streaming event surfaced to the display loop. Exactly one of
// Content or ToolStart is set: a text delta, or notice that the model has
// requested a tool invocation.
type Chunk struct {
	Content   string
	ToolStart *ToolCall
}

// Usage is the token accounting reported by the provider for one model call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Add accumulates u2 into u.
func (u *Usage) Add(u2 Usage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
	u.TotalTokens += u2.TotalTokens
}

// Request is a single streaming completion request against a provider.
type Request struct {
	Messages            []Message
	API                 string
	Model               string
	User                string
	Temperature         *float64
	TopP                *float64
	TopK                *int64
	Stop                []string
	MaxTokens           *int64
	MaxCompletionTokens *int64

	// Tools holds MCP tools grouped by server name.
	Tools map[string][]mcp.Tool
	// ToolCaller executes a tool call; nil disables tool use. The context is
	// the turn context; cancelling it aborts the in-flight call.
	ToolCaller func(ctx context.Context, name string, data []byte) (string, error)
}

// Conversation is a renderable transcript.
type Conversation []Message

// String renders the conversation as markdown, skipping system messages.
func (c Conversation) String() string {
	var sb strings.Builder
	for _, msg := range c {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case RoleUser:
			fmt.Fprintf(&sb, "> %s\n\n", msg.Content)
		case RoleAssistant:
			fmt.Fprintf(&sb, "%s\n\n", msg.Content)
		}
	}
	return sb.String()
}
