package fantasybridge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/google"
	fopenai "charm.land/fantasy/providers/openai"
	fopenaicompat "charm.land/fantasy/providers/openaicompat"
	"github.com/stretchr/testify/require"

	"github.com/hsolanki/seochat/internal/proto"
	"github.com/hsolanki/seochat/internal/stream"
)

func TestBuildCallGoogleThinkingBudget(t *testing.T) {
	s := &Stream{
		api: "google",
		config: Config{
			ThinkingBudget: 256,
		},
		request: proto.Request{},
	}

	call := s.buildCall()

	v, ok := call.ProviderOptions[google.Name]
	require.True(t, ok)
	opts, ok := v.(*google.ProviderOptions)
	require.True(t, ok)
	require.NotNil(t, opts.ThinkingConfig)
	require.NotNil(t, opts.ThinkingConfig.ThinkingBudget)
	require.EqualValues(t, 256, *opts.ThinkingConfig.ThinkingBudget)
}

func TestBuildCallNonGoogleNoThinkingBudgetOption(t *testing.T) {
	s := &Stream{
		api: "openai",
		config: Config{
			ThinkingBudget: 512,
		},
		request: proto.Request{},
	}

	call := s.buildCall()
	require.Empty(t, call.ProviderOptions)
}

func TestBuildCallUserProviderOptions(t *testing.T) {
	t.Run("openai user propagates to openai provider options", func(t *testing.T) {
		s := &Stream{
			api: "openai",
			request: proto.Request{
				User: "alice",
			},
		}

		call := s.buildCall()
		v, ok := call.ProviderOptions[fopenai.Name]
		require.True(t, ok)
		opts, ok := v.(*fopenai.ProviderOptions)
		require.True(t, ok)
		require.NotNil(t, opts.User)
		require.Equal(t, "alice", *opts.User)
	})

	t.Run("custom openai-compatible user propagates to compat options", func(t *testing.T) {
		s := &Stream{
			api: "ollama",
			request: proto.Request{
				User: "bob",
			},
		}

		call := s.buildCall()
		v, ok := call.ProviderOptions[fopenaicompat.Name]
		require.True(t, ok)
		opts, ok := v.(*fopenaicompat.ProviderOptions)
		require.True(t, ok)
		require.NotNil(t, opts.User)
		require.Equal(t, "bob", *opts.User)
	})

	t.Run("google does not attach user provider option", func(t *testing.T) {
		s := &Stream{
			api: "google",
			request: proto.Request{
				User: "carol",
			},
		}

		call := s.buildCall()
		_, hasOpenAI := call.ProviderOptions[fopenai.Name]
		_, hasCompat := call.ProviderOptions[fopenaicompat.Name]
		require.False(t, hasOpenAI)
		require.False(t, hasCompat)
	})
}

func TestBuildCallMaxCompletionTokensProviderOptions(t *testing.T) {
	tokens := int64(321)

	t.Run("openai uses provider max completion tokens", func(t *testing.T) {
		s := &Stream{
			api: "openai",
			request: proto.Request{
				MaxCompletionTokens: &tokens,
			},
		}

		call := s.buildCall()
		v, ok := call.ProviderOptions[fopenai.Name]
		require.True(t, ok)
		opts, ok := v.(*fopenai.ProviderOptions)
		require.True(t, ok)
		require.NotNil(t, opts.MaxCompletionTokens)
		require.EqualValues(t, 321, *opts.MaxCompletionTokens)
	})

	t.Run("openai-compatible does not set max completion tokens", func(t *testing.T) {
		s := &Stream{
			api: "ollama",
			request: proto.Request{
				MaxCompletionTokens: &tokens,
			},
		}

		call := s.buildCall()
		_, hasCompat := call.ProviderOptions[fopenaicompat.Name]
		require.False(t, hasCompat)
	})
}

func TestConsumePartSkipsProviderExecutedToolCalls(t *testing.T) {
	s := &Stream{stepToolCallSeen: map[string]struct{}{}}

	s.consumePart(fantasy.StreamPart{
		Type:             fantasy.StreamPartTypeToolCall,
		ID:               "tc_1",
		ToolCallName:     "dataforseo_backlinks_summary",
		ToolCallInput:    "{}",
		ProviderExecuted: true,
	})

	require.Empty(t, s.stepToolCalls)
	require.Nil(t, s.lastToolStart)
}

func TestConsumePartEmitsToolStartOnce(t *testing.T) {
	s := &Stream{stepToolCallSeen: map[string]struct{}{}}

	part := fantasy.StreamPart{
		Type:          fantasy.StreamPartTypeToolCall,
		ID:            "tc_1",
		ToolCallName:  "dataforseo_backlinks_summary",
		ToolCallInput: `{"target":"example.com"}`,
	}

	s.consumePart(part)
	require.Len(t, s.stepToolCalls, 1)
	require.NotNil(t, s.lastToolStart)
	require.Equal(t, "dataforseo_backlinks_summary", s.lastToolStart.Function.Name)

	// A duplicate part must not announce the call again.
	s.consumePart(part)
	require.Len(t, s.stepToolCalls, 1)
	require.Nil(t, s.lastToolStart)
}

func TestConsumePartAccumulatesUsage(t *testing.T) {
	s := &Stream{stepToolCallSeen: map[string]struct{}{}}

	s.consumePart(fantasy.StreamPart{
		Type:  fantasy.StreamPartTypeFinish,
		Usage: fantasy.Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120},
	})
	s.consumePart(fantasy.StreamPart{
		Type:  fantasy.StreamPartTypeFinish,
		Usage: fantasy.Usage{InputTokens: 200, OutputTokens: 30, TotalTokens: 230},
	})

	usage := s.Usage()
	require.EqualValues(t, 300, usage.InputTokens)
	require.EqualValues(t, 50, usage.OutputTokens)
	require.EqualValues(t, 350, usage.TotalTokens)
}

func TestStreamCommitsConcatenatedDeltas(t *testing.T) {
	var gotArgs string
	calls := 0
	s := &Stream{
		ctx:              context.Background(),
		stepToolCallSeen: map[string]struct{}{},
		warningSeen:      map[string]struct{}{},
		request: proto.Request{
			ToolCaller: func(_ context.Context, name string, data []byte) (string, error) {
				calls++
				gotArgs = string(data)
				return `{"status_code": 20000}`, nil
			},
		},
	}

	parts := []fantasy.StreamPart{
		{Type: fantasy.StreamPartTypeTextStart},
		{Type: fantasy.StreamPartTypeTextDelta, Delta: "Back"},
		{Type: fantasy.StreamPartTypeTextDelta, Delta: "link "},
		{
			Type:          fantasy.StreamPartTypeToolCall,
			ID:            "tc_1",
			ToolCallName:  "dataforseo_backlinks_summary",
			ToolCallInput: `{"target":"example.com"}`,
		},
		{Type: fantasy.StreamPartTypeTextDelta, Delta: "overview:"},
		{Type: fantasy.StreamPartTypeTextEnd},
	}
	ch := make(chan fantasy.StreamPart, len(parts))
	for _, part := range parts {
		ch <- part
	}
	close(ch)
	s.partCh = ch

	var deltas strings.Builder
	for s.Next() {
		chunk, err := s.Current()
		if errors.Is(err, stream.ErrNoContent) {
			continue
		}
		require.NoError(t, err)
		deltas.WriteString(chunk.Content)
	}
	require.NoError(t, s.Err())

	committed := s.Messages()
	require.Len(t, committed, 1)
	require.Equal(t, proto.RoleAssistant, committed[0].Role)
	require.Equal(t, deltas.String(), committed[0].Content)
	require.Equal(t, "Backlink overview:", committed[0].Content)
	require.Len(t, committed[0].ToolCalls, 1)

	statuses := s.CallTools()
	require.Len(t, statuses, 1)
	require.Equal(t, 1, calls)
	require.Equal(t, "tc_1", statuses[0].ID)
	require.False(t, statuses[0].IsError)
	require.Equal(t, `{"target":"example.com"}`, gotArgs)

	committed = s.Messages()
	require.Len(t, committed, 2)
	require.Equal(t, proto.RoleTool, committed[1].Role)
	require.Equal(t, "tc_1", committed[1].ToolCalls[0].ID)
}

func TestCloseCancelsPendingToolCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		ctx:    ctx,
		cancel: cancel,
		stepToolCalls: []proto.ToolCall{{
			ID:       "tc_1",
			Function: proto.Function{Name: "dataforseo_backlinks_summary"},
		}},
		request: proto.Request{
			ToolCaller: func(ctx context.Context, name string, data []byte) (string, error) {
				return "", ctx.Err()
			},
		},
	}

	require.NoError(t, s.Close())

	statuses := s.CallTools()
	require.Len(t, statuses, 1)
	require.True(t, statuses[0].IsError)
	require.Contains(t, statuses[0].Content, "context canceled")
}

func TestDrainWarningsDeduplicates(t *testing.T) {
	s := &Stream{warningSeen: map[string]struct{}{}}

	s.consumePart(fantasy.StreamPart{
		Type: fantasy.StreamPartTypeWarnings,
		Warnings: []fantasy.CallWarning{
			{Type: fantasy.CallWarningTypeUnsupportedSetting, Setting: "top_k", Message: "unsupported setting: top_k"},
			{Type: fantasy.CallWarningTypeUnsupportedSetting, Setting: "top_k", Message: "unsupported setting: top_k"},
		},
	})

	warnings := s.DrainWarnings()
	require.Equal(t, []string{"unsupported setting: top_k"}, warnings)
	require.Empty(t, s.DrainWarnings())
}
