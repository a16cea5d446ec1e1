package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ErrBudgetExhausted is returned once a turn has spent its tool call budget.
// The model may retry failed tools on its own; the budget keeps those retries
// bounded.
var ErrBudgetExhausted = errors.New("tool call budget for this turn is exhausted")

// TransportError marks a tool call that never reached the tool server or got
// no well-formed response back.
type TransportError struct {
	Server string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("server %s unreachable: %s", e.Server, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError marks a tool call that exceeded its invocation deadline.
type TimeoutError struct {
	Name  string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("tool %s timed out after %s", e.Name, e.Limit)
}

// ApplicationError marks a tool call that returned a well-formed payload
// carrying an in-band API error, such as a DataForSEO task-level failure.
type ApplicationError struct {
	Code    int
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Caller executes a raw tool call against the MCP layer.
type Caller func(ctx context.Context, name string, data []byte) (string, error)

// ToolOptions configures the tool invocation middleware.
type ToolOptions struct {
	// Timeout bounds a single invocation. Zero disables the deadline.
	Timeout time.Duration
	// MaxCalls caps invocations per turn. Zero means unlimited.
	MaxCalls int
	// MaxResultBytes truncates oversized tool payloads before they reach the
	// model context. Zero applies DefaultMaxResultBytes.
	MaxResultBytes int
}

// DefaultMaxResultBytes bounds tool payload size fed back to the model.
const DefaultMaxResultBytes = 100 * 1024

// Middleware wraps a raw caller with a per-turn budget, a per-call timeout,
// in-band API error detection, and result truncation. The per-call deadline
// is layered on the caller's context, so cancelling the turn also cancels an
// in-flight tool call. Construct a fresh middleware for each turn so the
// budget resets.
func Middleware(opts ToolOptions, next Caller) Caller {
	if opts.MaxResultBytes == 0 {
		opts.MaxResultBytes = DefaultMaxResultBytes
	}
	var calls atomic.Int64
	return func(ctx context.Context, name string, data []byte) (string, error) {
		if opts.MaxCalls > 0 && calls.Add(1) > int64(opts.MaxCalls) {
			return "", ErrBudgetExhausted
		}

		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		content, err := next(ctx, name, data)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", &TimeoutError{Name: name, Limit: opts.Timeout}
			}
			return "", err
		}

		if appErr, ok := DetectApplicationError(content); ok {
			return "", appErr
		}

		return Truncate(content, opts.MaxResultBytes), nil
	}
}

// Truncate caps a tool payload at n bytes, marking the cut so the model knows
// data is missing.
func Truncate(content string, n int) string {
	if n <= 0 || len(content) <= n {
		return content
	}
	return content[:n] + "\n…[truncated]"
}

type apiStatus struct {
	StatusCode    int         `json:"status_code"`
	StatusMessage string      `json:"status_message"`
	Tasks         []apiStatus `json:"tasks"`
}

// DetectApplicationError inspects a successful tool payload for an in-band
// API failure. DataForSEO responses carry status_code at the top level and
// per task; the 20xxx range means success, anything else is a failure even
// though the transport call succeeded.
func DetectApplicationError(content string) (*ApplicationError, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var status apiStatus
	if err := json.Unmarshal([]byte(trimmed), &status); err != nil {
		return nil, false
	}
	if bad, ok := badStatus(status); ok {
		return bad, true
	}
	for _, task := range status.Tasks {
		if bad, ok := badStatus(task); ok {
			return bad, true
		}
	}
	return nil, false
}

func badStatus(s apiStatus) (*ApplicationError, bool) {
	if s.StatusCode == 0 || (s.StatusCode >= 20000 && s.StatusCode < 30000) {
		return nil, false
	}
	msg := s.StatusMessage
	if msg == "" {
		msg = "request failed"
	}
	return &ApplicationError{Code: s.StatusCode, Message: msg}, true
}
