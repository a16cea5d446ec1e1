package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hsolanki/seochat/internal/proto"
)

func TestCallTool(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		msg, status := CallTool(ctx, "call-1", "backlinks_summary", []byte(`{"target":"example.com"}`), func(_ context.Context, name string, data []byte) (string, error) {
			require.Equal(t, "backlinks_summary", name)
			return `{"rank": 312}`, nil
		})
		require.False(t, status.IsError)
		require.Equal(t, `{"rank": 312}`, status.Content)
		require.Equal(t, proto.RoleTool, msg.Role)
		require.Len(t, msg.ToolCalls, 1)
		require.Equal(t, "call-1", msg.ToolCalls[0].ID)
		require.False(t, msg.ToolCalls[0].IsError)
	})

	t.Run("failure is normalized into the tool message", func(t *testing.T) {
		msg, status := CallTool(ctx, "call-2", "serp_organic_live_advanced", nil, func(context.Context, string, []byte) (string, error) {
			return "", errors.New("connection refused")
		})
		require.True(t, status.IsError)
		require.Equal(t, "Tool serp_organic_live_advanced failed: connection refused", status.Content)
		require.Equal(t, status.Content, msg.Content)
		require.True(t, msg.ToolCalls[0].IsError)
	})

	t.Run("timeout gets a stable reason", func(t *testing.T) {
		_, status := CallTool(ctx, "call-3", "on_page_lighthouse", nil, func(context.Context, string, []byte) (string, error) {
			return "", &TimeoutError{Name: "on_page_lighthouse", Limit: 2 * time.Minute}
		})
		require.True(t, status.IsError)
		require.Equal(t, "Tool on_page_lighthouse failed: timed out after 2m0s", status.Content)
	})

	t.Run("application error surfaces the API message", func(t *testing.T) {
		_, status := CallTool(ctx, "call-4", "backlinks_summary", nil, func(context.Context, string, []byte) (string, error) {
			return "", &ApplicationError{Code: 40401, Message: "task not found"}
		})
		require.True(t, status.IsError)
		require.Equal(t, "Tool backlinks_summary failed: task not found", status.Content)
	})
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()

	t.Run("passes content through", func(t *testing.T) {
		caller := Middleware(ToolOptions{}, func(ctx context.Context, name string, data []byte) (string, error) {
			return "ok", nil
		})
		out, err := caller(ctx, "backlinks_summary", nil)
		require.NoError(t, err)
		require.Equal(t, "ok", out)
	})

	t.Run("enforces the per-turn budget", func(t *testing.T) {
		caller := Middleware(ToolOptions{MaxCalls: 2}, func(ctx context.Context, name string, data []byte) (string, error) {
			return "ok", nil
		})
		for range 2 {
			_, err := caller(ctx, "backlinks_summary", nil)
			require.NoError(t, err)
		}
		_, err := caller(ctx, "backlinks_summary", nil)
		require.ErrorIs(t, err, ErrBudgetExhausted)
	})

	t.Run("budget resets with a fresh middleware", func(t *testing.T) {
		mk := func() Caller {
			return Middleware(ToolOptions{MaxCalls: 1}, func(ctx context.Context, name string, data []byte) (string, error) {
				return "ok", nil
			})
		}
		first := mk()
		_, err := first(ctx, "a", nil)
		require.NoError(t, err)
		_, err = first(ctx, "a", nil)
		require.ErrorIs(t, err, ErrBudgetExhausted)

		second := mk()
		_, err = second(ctx, "a", nil)
		require.NoError(t, err)
	})

	t.Run("maps deadline exceeded to TimeoutError", func(t *testing.T) {
		caller := Middleware(ToolOptions{Timeout: 10 * time.Millisecond}, func(ctx context.Context, name string, data []byte) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		_, err := caller(ctx, "on_page_lighthouse", nil)
		var timeout *TimeoutError
		require.ErrorAs(t, err, &timeout)
		require.Equal(t, "on_page_lighthouse", timeout.Name)
	})

	t.Run("turn cancellation reaches the tool call", func(t *testing.T) {
		caller := Middleware(ToolOptions{Timeout: time.Minute}, func(ctx context.Context, name string, data []byte) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		turnCtx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := caller(turnCtx, "backlinks_summary", nil)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("detects in-band API failures", func(t *testing.T) {
		caller := Middleware(ToolOptions{}, func(ctx context.Context, name string, data []byte) (string, error) {
			return `{"status_code": 40204, "status_message": "Access denied. Visit your Subscription page."}`, nil
		})
		_, err := caller(ctx, "backlinks_summary", nil)
		var app *ApplicationError
		require.ErrorAs(t, err, &app)
		require.Equal(t, 40204, app.Code)
	})

	t.Run("truncates oversized payloads", func(t *testing.T) {
		caller := Middleware(ToolOptions{MaxResultBytes: 16}, func(ctx context.Context, name string, data []byte) (string, error) {
			return strings.Repeat("x", 64), nil
		})
		out, err := caller(ctx, "serp_organic_live_advanced", nil)
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(out, "…[truncated]"))
		require.Equal(t, strings.Repeat("x", 16), strings.TrimSuffix(out, "\n…[truncated]"))
	})
}

func TestDetectApplicationError(t *testing.T) {
	t.Run("top level success", func(t *testing.T) {
		_, ok := DetectApplicationError(`{"status_code": 20000, "status_message": "Ok."}`)
		require.False(t, ok)
	})

	t.Run("task level failure", func(t *testing.T) {
		payload := `{
			"status_code": 20000,
			"tasks": [{"status_code": 40501, "status_message": "Invalid Field: 'location_name'."}]
		}`
		app, ok := DetectApplicationError(payload)
		require.True(t, ok)
		require.Equal(t, 40501, app.Code)
		require.Contains(t, app.Message, "location_name")
	})

	t.Run("non-JSON payloads pass", func(t *testing.T) {
		_, ok := DetectApplicationError("plain text result")
		require.False(t, ok)
	})

	t.Run("JSON without status passes", func(t *testing.T) {
		_, ok := DetectApplicationError(`{"rows": [1, 2, 3]}`)
		require.False(t, ok)
	})

	t.Run("missing message gets a default", func(t *testing.T) {
		app, ok := DetectApplicationError(`{"status_code": 50000}`)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("status %d: request failed", 50000), app.Error())
	})
}
