package fantasybridge

import (
	"errors"
	"testing"

	"charm.land/fantasy"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/hsolanki/seochat/internal/proto"
)

func TestToFantasyPrompt(t *testing.T) {
	messages := []proto.Message{
		{Role: proto.RoleSystem, Content: "sys"},
		{Role: proto.RoleUser, Content: "how many backlinks does example.com have?"},
		{Role: proto.RoleAssistant, Content: "checking", ToolCalls: []proto.ToolCall{{
			ID: "call_1",
			Function: proto.Function{
				Name:      "dataforseo_backlinks_summary",
				Arguments: []byte(`{"target":"example.com"}`),
			},
		}}},
		{Role: proto.RoleTool, Content: "ok", ToolCalls: []proto.ToolCall{{ID: "call_1"}}},
		{Role: proto.RoleTool, Content: "boom", ToolCalls: []proto.ToolCall{{ID: "call_2", IsError: true}}},
	}

	prompt := toFantasyPrompt(messages)
	require.Len(t, prompt, 5)

	require.Equal(t, fantasy.MessageRoleSystem, prompt[0].Role)
	require.Equal(t, fantasy.MessageRoleUser, prompt[1].Role)
	require.Equal(t, fantasy.MessageRoleAssistant, prompt[2].Role)
	require.Equal(t, fantasy.MessageRoleTool, prompt[3].Role)
	require.Equal(t, fantasy.MessageRoleTool, prompt[4].Role)

	resultPart, ok := fantasy.AsMessagePart[fantasy.ToolResultPart](prompt[3].Content[0])
	require.True(t, ok)
	_, textOK := fantasy.AsToolResultOutputType[fantasy.ToolResultOutputContentText](resultPart.Output)
	require.True(t, textOK)

	errPart, ok := fantasy.AsMessagePart[fantasy.ToolResultPart](prompt[4].Content[0])
	require.True(t, ok)
	errOutput, errOK := fantasy.AsToolResultOutputType[fantasy.ToolResultOutputContentError](errPart.Output)
	require.True(t, errOK)
	require.Equal(t, errors.New("boom").Error(), errOutput.Error.Error())
}

func TestFromMCPTools(t *testing.T) {
	tools := fromMCPTools(map[string][]mcp.Tool{
		"dataforseo": []mcp.Tool{
			{
				Name:        "backlinks_summary",
				Description: "Backlink profile overview",
				InputSchema: mcp.ToolInputSchema{
					Properties: map[string]any{
						"target": map[string]any{"type": "string"},
					},
					Required: []string{"target"},
				},
			},
		},
	})

	require.Len(t, tools, 1)
	fn, ok := tools[0].(fantasy.FunctionTool)
	require.True(t, ok)
	require.Equal(t, "dataforseo_backlinks_summary", fn.Name)
	require.Equal(t, "Backlink profile overview", fn.Description)
	require.Equal(t, "object", fn.InputSchema["type"])
	require.Equal(t, []string{"target"}, fn.InputSchema["required"])
}
