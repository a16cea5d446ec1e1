// Package stream defines the streaming completion contract between the
// provider bridge, the agent, and the display loop.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hsolanki/seochat/internal/proto"
)

// ErrNoContent is returned by Current when the underlying event carries
// nothing to display.
var ErrNoContent = errors.New("no content")

// Client starts streaming completion requests against a provider.
type Client interface {
	Request(ctx context.Context, request proto.Request) Stream
}

// Stream is an in-flight completion. Next/Current advance through display
// events; once Next returns false the step is complete and CallTools executes
// any tool invocations the model requested, after which Next resumes with a
// follow-up step if tools ran.
type Stream interface {
	Next() bool
	Current() (proto.Chunk, error)
	Close() error
	Err() error
	Messages() []proto.Message
	CallTools() []proto.ToolCallStatus
	DrainWarnings() []string
	Usage() proto.Usage
}

// CallTool executes a single tool call through the given caller and returns
// the tool message to append to the transcript along with the status for
// display. Failures never propagate as errors: they are normalized into the
// tool message content so the model can react, retry, or answer without the
// data. The context is the turn context; cancelling it aborts the call.
func CallTool(
	ctx context.Context,
	id, name string,
	args []byte,
	caller Caller,
) (proto.Message, proto.ToolCallStatus) {
	start := time.Now()
	content, err := caller(ctx, name, args)
	elapsed := time.Since(start)

	status := proto.ToolCallStatus{
		ID:      id,
		Name:    name,
		Args:    args,
		Content: content,
		Elapsed: elapsed,
	}
	if err != nil {
		status.IsError = true
		status.Content = fmt.Sprintf("Tool %s failed: %s", name, Reason(err))
	}

	return proto.Message{
		Role:    proto.RoleTool,
		Content: status.Content,
		ToolCalls: []proto.ToolCall{{
			ID:      id,
			IsError: status.IsError,
			Function: proto.Function{
				Name:      name,
				Arguments: args,
			},
		}},
	}, status
}

// Reason renders a tool failure for the model. Classified failures get a
// stable one-line form so the model sees the same shape regardless of where
// in the pipeline the call died.
func Reason(err error) string {
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return fmt.Sprintf("timed out after %s", timeout.Limit)
	}
	var app *ApplicationError
	if errors.As(err, &app) {
		return app.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.Error()
	}
	if errors.Is(err, ErrBudgetExhausted) {
		return ErrBudgetExhausted.Error()
	}
	return err.Error()
}
