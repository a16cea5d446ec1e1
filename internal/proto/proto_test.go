package proto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/require"
)

func TestToolCallStatusCompleted(t *testing.T) {
	status := ToolCallStatus{
		ID:      "call_1",
		Name:    "dataforseo_backlinks_summary",
		Args:    json.RawMessage(`{ "target": "example.com" }`),
		Content: `{"status_code":20000}`,
		Elapsed: 1234 * time.Millisecond,
	}
	golden.RequireEqual(t, []byte(status.String()))
}

func TestToolCallStatusFailed(t *testing.T) {
	status := ToolCallStatus{
		ID:      "call_2",
		Name:    "gsc_search_analytics",
		Args:    json.RawMessage(`{"siteUrl":"https://example.com"}`),
		Content: "Tool gsc_search_analytics failed: server gsc unreachable: connection refused",
		IsError: true,
		Elapsed: 42 * time.Millisecond,
	}
	golden.RequireEqual(t, []byte(status.String()))
}

func TestToolCallStatusTruncatesLongArgs(t *testing.T) {
	args := json.RawMessage(`{"keywords":["` + strings.Repeat("seo tools,", 30) + `"]}`)
	out := ToolCallStatus{Name: "dataforseo_labs_google_keyword_ideas", Args: args}.String()
	require.Contains(t, out, "…")
	require.NotContains(t, out, strings.Repeat("seo tools,", 30))
}

func TestConversationRendersUserAndAssistantOnly(t *testing.T) {
	c := Conversation{
		{Role: RoleSystem, Content: "instructions"},
		{Role: RoleUser, Content: "how is example.com doing?"},
		{Role: RoleAssistant, Content: "Here is the overview."},
		{Role: RoleTool, Content: ""},
	}
	out := c.String()
	require.Equal(t, "> how is example.com doing?\n\nHere is the overview.\n\n", out)
	require.NotContains(t, out, "instructions")
}

func TestUsageAdd(t *testing.T) {
	u := Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	u.Add(Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3})
	require.Equal(t, Usage{InputTokens: 11, OutputTokens: 7, TotalTokens: 18}, u)
}
