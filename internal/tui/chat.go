// Package tui implements the interactive chat session as a Bubble Tea
// program: a scrolling markdown transcript, a prompt line, tool invocation
// indicators, and a status footer with token usage.
package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"

	"charm.land/fantasy"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/ordered"

	"github.com/hsolanki/seochat/internal/agent"
	"github.com/hsolanki/seochat/internal/config"
	"github.com/hsolanki/seochat/internal/errs"
	"github.com/hsolanki/seochat/internal/present"
	"github.com/hsolanki/seochat/internal/proto"
	"github.com/hsolanki/seochat/internal/storage"
	"github.com/hsolanki/seochat/internal/stream"
	"github.com/hsolanki/seochat/internal/usage"
)

type chatState int

const (
	chatInputState chatState = iota
	chatStreamState
	chatModelPickState
)

// Chat is the Bubble Tea model for an interactive multi-turn session.
type Chat struct {
	Error *errs.Error

	state    chatState
	input    textinput.Model
	viewport viewport.Model
	glam     *glamour.TermRenderer
	renderer *lipgloss.Renderer
	styles   present.Styles
	anim     tea.Model

	history      []proto.Message
	historyBuf   bytes.Buffer // rendered conversation so far
	streamBuf    bytes.Buffer // current response being streamed
	activeStream stream.Stream
	activeCancel context.CancelFunc

	agent   *agent.Service
	exports *storage.Exports
	tracker *usage.Tracker
	cfg     *config.Config
	ctx     context.Context

	width  int
	height int

	renderScheduled bool
	dirtyOutput     bool
	stopWarned      bool
	retries         int
	initialPrompt   string
	waitingSince    time.Time

	// activeTool is the tool the model is currently invoking, for the footer.
	activeTool  string
	streamModel string
	notice      string
	banner      string

	modelForm   *huh.Form
	modelChoice string
}

// NewChat creates the Bubble Tea model for interactive chat. exports may be
// nil to disable transcript saving.
func NewChat(
	ctx context.Context,
	r *lipgloss.Renderer,
	cfg *config.Config,
	agentSvc *agent.Service,
	exports *storage.Exports,
	initialPrompt string,
) *Chat {
	gr, _ := glamour.NewTermRenderer(
		glamour.WithEnvironmentConfig(),
		glamour.WithWordWrap(cfg.WordWrap),
	)

	ti := textinput.New()
	ti.Prompt = "seo> "
	ti.Focus()
	ti.CharLimit = 0

	vp := viewport.New(0, 0)
	vp.GotoBottom()

	return &Chat{
		state:         chatInputState,
		input:         ti,
		viewport:      vp,
		glam:          gr,
		renderer:      r,
		styles:        present.MakeStyles(r),
		agent:         agentSvc,
		exports:       exports,
		tracker:       usage.NewTracker(cfg.Prices),
		cfg:           cfg,
		ctx:           ctx,
		initialPrompt: initialPrompt,
	}
}

// chatSubmitMsg is sent when the user presses Enter with non-empty input.
type chatSubmitMsg struct {
	prompt string
}

// chatStreamChunkMsg wraps one streaming event: a text delta, or notice that
// the model has started a tool call.
type chatStreamChunkMsg struct {
	content   string
	toolStart *proto.ToolCall
	stream    stream.Stream
	errh      func(error) tea.Msg
}

// chatStreamDoneMsg signals the stream is complete.
type chatStreamDoneMsg struct {
	messages []proto.Message
	usage    proto.Usage
	model    string
}

type chatRenderMsg struct{}

type chatWaitingTickMsg struct{}

// Init implements tea.Model.
func (c *Chat) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if !c.cfg.Quiet {
		c.anim = newAnim(c.cfg.Fanciness, c.cfg.StatusText, c.renderer, c.styles)
		cmds = append(cmds, c.anim.Init())
	}
	if c.initialPrompt != "" {
		cmds = append(cmds, func() tea.Msg {
			return chatSubmitMsg{prompt: c.initialPrompt}
		})
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if c.state == chatModelPickState {
		return c.updateModelPick(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		c.resizeViewport()
		c.refreshViewport()
		return c, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if c.state == chatStreamState {
				c.closeActiveStream()
				c.waitingSince = time.Time{}
				c.activeTool = ""
				c.finishTurn()
				c.state = chatInputState
				c.resizeViewport()
				return c, nil
			}
			return c, tea.Quit
		case "ctrl+y":
			c.notice = c.copyLastAnswer()
			return c, nil
		case "enter":
			text := strings.TrimSpace(c.input.Value())
			if c.state != chatInputState {
				if strings.HasPrefix(text, "/") {
					c.input.SetValue("")
					c.notice = "Commands are unavailable while a response is streaming."
				}
				break
			}
			if text == "" {
				return c, nil
			}
			c.input.SetValue("")
			c.notice = ""
			if strings.HasPrefix(text, "/") {
				return c.runCommand(text)
			}
			return c, func() tea.Msg {
				return chatSubmitMsg{prompt: text}
			}
		}

	case chatSubmitMsg:
		c.retries = 0
		c.banner = ""
		c.notice = ""
		fmt.Fprintf(&c.historyBuf, "> %s\n\n", msg.prompt)
		c.streamBuf.Reset()
		c.waitingSince = time.Now()
		c.state = chatStreamState
		c.resizeViewport()
		c.dirtyOutput = true
		c.refreshViewport()
		return c, tea.Batch(c.startStreamCmd(msg.prompt), c.waitingTickCmd())

	case chatStreamChunkMsg:
		if msg.stream == nil {
			// Stream complete.
			return c, nil
		}
		if msg.toolStart != nil {
			c.activeTool = msg.toolStart.Function.Name
		}
		if msg.content != "" {
			c.waitingSince = time.Time{}
			c.activeTool = ""
			c.streamBuf.WriteString(msg.content)
			c.resizeViewport()
			c.dirtyOutput = true
			if !c.renderScheduled {
				c.renderScheduled = true
				cmds = append(cmds, c.renderTickCmd())
			}
		}
		cmds = append(cmds, c.receiveStreamCmd(chatStreamChunkMsg{
			stream: msg.stream,
			errh:   msg.errh,
		}))
		return c, tea.Batch(cmds...)

	case chatStreamDoneMsg:
		c.history = msg.messages
		c.tracker.Record(msg.model, msg.usage)
		c.waitingSince = time.Time{}
		c.activeTool = ""
		c.finishTurn()
		c.state = chatInputState
		c.resizeViewport()
		c.refreshViewport()
		return c, nil

	case chatWaitingTickMsg:
		if c.state == chatStreamState && c.streamBuf.Len() == 0 {
			return c, c.waitingTickCmd()
		}
		return c, nil

	case chatRenderMsg:
		c.renderScheduled = false
		if c.dirtyOutput {
			c.refreshViewport()
		}
		return c, nil

	case errs.Error:
		return c, c.surfaceError(msg)

	case error:
		return c, c.surfaceError(errs.Error{Err: msg})
	}

	// Update sub-models.
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	cmds = append(cmds, cmd)

	if c.state == chatStreamState && !c.cfg.Quiet && c.anim != nil {
		c.anim, cmd = c.anim.Update(msg)
		cmds = append(cmds, cmd)
	}

	c.viewport, cmd = c.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return c, tea.Batch(cmds...)
}

// View implements tea.Model.
func (c *Chat) View() string {
	if c.width == 0 || c.height == 0 {
		return ""
	}

	divider := c.styles.Comment.Render(strings.Repeat("─", max(c.width, 1)))

	var main string
	switch {
	case c.state == chatModelPickState && c.modelForm != nil:
		main = c.modelForm.View()
	case c.state == chatStreamState && c.streamBuf.Len() == 0:
		status := c.waitingStatus(time.Now())
		if !c.cfg.Quiet && c.anim != nil {
			main = status + "\n" + c.anim.View()
		} else {
			main = status
		}
	default:
		main = c.input.View()
	}

	return c.viewport.View() + "\n" + divider + "\n" + main + "\n" + c.statusLine()
}

// statusLine renders the footer: an error banner, a transient notice, the
// running tool, or the model and session usage.
func (c *Chat) statusLine() string {
	switch {
	case c.banner != "":
		return c.styles.ErrorHeader.String() + " " + c.styles.ErrorDetails.Render(c.banner)
	case c.notice != "":
		return c.styles.Comment.Render(c.notice)
	case c.activeTool != "":
		return c.styles.Flag.Render("⚙ " + c.activeTool)
	default:
		line := ordered.First(c.streamModel, c.cfg.Model)
		if s := c.tracker.Summary(); s != "" {
			line += " · " + s
		}
		return c.styles.Timeago.Render(line)
	}
}

// Messages returns the current conversation history.
func (c *Chat) Messages() []proto.Message {
	return c.history
}

// runCommand dispatches a slash command entered at the prompt.
func (c *Chat) runCommand(text string) (tea.Model, tea.Cmd) {
	switch text {
	case "/exit", "/quit":
		return c, tea.Quit
	case "/clear":
		c.history = nil
		c.historyBuf.Reset()
		c.streamBuf.Reset()
		c.banner = ""
		c.viewport.SetContent("")
		c.notice = "Conversation cleared."
		return c, nil
	case "/save":
		c.notice = c.saveTranscript()
		return c, nil
	case "/model":
		return c.openModelPick()
	default:
		c.notice = fmt.Sprintf("Unknown command %s. Commands: /model /save /clear /exit", text)
		return c, nil
	}
}

func (c *Chat) copyLastAnswer() string {
	for i := len(c.history) - 1; i >= 0; i-- {
		msg := c.history[i]
		if msg.Role == proto.RoleAssistant && msg.Content != "" {
			if err := clipboard.WriteAll(msg.Content); err != nil {
				return "Could not copy to clipboard: " + err.Error()
			}
			return "Copied last answer to clipboard."
		}
	}
	return "Nothing to copy yet."
}

func (c *Chat) saveTranscript() string {
	if c.exports == nil {
		return "Transcript saving is not configured."
	}
	if len(c.history) == 0 {
		return "Nothing to save yet."
	}
	path, err := c.exports.Write(func(w io.Writer) error {
		_, err := io.WriteString(w, proto.Conversation(c.history).String())
		return err
	})
	if err != nil {
		return "Could not save the transcript: " + err.Error()
	}
	return "Saved transcript to " + path
}

func (c *Chat) openModelPick() (tea.Model, tea.Cmd) {
	var opts []huh.Option[string]
	for _, api := range c.cfg.APIs {
		names := make([]string, 0, len(api.Models))
		for name := range api.Models {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			key := api.Name + "/" + name
			opts = append(opts, huh.NewOption(key, key))
		}
	}
	if len(opts) == 0 {
		c.notice = "No models are configured."
		return c, nil
	}

	c.modelChoice = c.cfg.API + "/" + c.cfg.Model
	c.modelForm = huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Switch model").
			Description("The transcript is kept; the session is rebuilt for the next turn.").
			Options(opts...).
			Value(&c.modelChoice),
	))
	c.state = chatModelPickState
	c.resizeViewport()
	return c, c.modelForm.Init()
}

func (c *Chat) updateModelPick(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		c.state = chatInputState
		c.modelForm = nil
		c.resizeViewport()
		return c, nil
	}

	form, cmd := c.modelForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.modelForm = f
	}

	switch c.modelForm.State {
	case huh.StateCompleted:
		api, model, ok := strings.Cut(c.modelChoice, "/")
		if ok {
			c.agent.SetModel(api, model)
			c.notice = fmt.Sprintf("Switched to %s. The session was rebuilt; the transcript is kept.", c.modelChoice)
		}
		c.state = chatInputState
		c.modelForm = nil
		c.resizeViewport()
		return c, nil
	case huh.StateAborted:
		c.state = chatInputState
		c.modelForm = nil
		c.resizeViewport()
		return c, nil
	}
	return c, cmd
}

func (c *Chat) startStreamCmd(prompt string) tea.Cmd {
	return func() tea.Msg {
		if c.agent == nil {
			return errs.Error{Reason: "Agent is not available"}
		}
		c.closeActiveStream()

		ctx := c.ctx
		if c.cfg.RequestTimeout > 0 {
			cctx, cancel := context.WithTimeout(c.ctx, c.cfg.RequestTimeout)
			ctx = cctx
			c.activeCancel = cancel
		}

		res, err := c.agent.StreamContinue(ctx, c.history, prompt)
		if err != nil {
			c.closeActiveStream()
			var e errs.Error
			if errors.As(err, &e) {
				return e
			}
			return errs.Error{Err: err}
		}

		c.activeStream = res.Stream
		c.streamModel = res.Model.Name
		mod := res.Model

		if len(c.cfg.Stop) > 0 && !c.cfg.Quiet && !c.stopWarned {
			fmt.Fprintln(os.Stderr, c.styles.Comment.Render("Warning: stop sequences are currently ignored by the Fantasy bridge."))
			c.stopWarned = true
		}

		return c.receiveStreamCmd(chatStreamChunkMsg{
			stream: res.Stream,
			errh: func(err error) tea.Msg {
				return c.handleStreamError(err, mod, prompt)
			},
		})()
	}
}

func (c *Chat) receiveStreamCmd(msg chatStreamChunkMsg) tea.Cmd {
	return func() tea.Msg {
		if msg.stream.Next() {
			chunk, err := msg.stream.Current()
			if err != nil && !errors.Is(err, stream.ErrNoContent) {
				_ = msg.stream.Close()
				return msg.errh(err)
			}
			return chatStreamChunkMsg{
				content:   chunk.Content,
				toolStart: chunk.ToolStart,
				stream:    msg.stream,
				errh:      msg.errh,
			}
		}

		if err := msg.stream.Err(); err != nil {
			c.closeActiveStream()
			return msg.errh(err)
		}

		if !c.cfg.Quiet {
			for _, warning := range msg.stream.DrainWarnings() {
				fmt.Fprintln(os.Stderr, c.styles.Comment.Render("Warning: "+warning))
			}
		}

		results := msg.stream.CallTools()
		if len(results) > 0 {
			toolMsg := chatStreamChunkMsg{
				stream: msg.stream,
				errh:   msg.errh,
			}
			for _, call := range results {
				toolMsg.content += call.String()
			}
			return toolMsg
		}

		messages := msg.stream.Messages()
		used := msg.stream.Usage()
		c.closeActiveStream()
		return chatStreamDoneMsg{messages: messages, usage: used, model: c.streamModel}
	}
}

func (c *Chat) handleStreamError(err error, mod config.Model, prompt string) tea.Msg {
	action := c.agent.ActionForStreamError(err, mod, prompt)
	if action.ModelOverride != "" {
		c.cfg.Model = action.ModelOverride
	}
	if action.Retry {
		c.retries++
		if c.retries < c.cfg.MaxRetries {
			c.waitForRetryDelay(action.Err)
			next := action.Prompt
			if next == "" {
				next = prompt
			}
			return chatSubmitMsg{prompt: next}
		}
	}
	if action.Err.Err == nil && action.Err.Reason == "" {
		return errs.Error{Err: err}
	}
	return action.Err
}

func (c *Chat) waitForRetryDelay(retryErr error) {
	var providerErr *fantasy.ProviderError
	if !errors.As(retryErr, &providerErr) {
		return
	}
	opts := fantasy.DefaultRetryOptions()
	opts.MaxRetries = 1
	opts.InitialDelayIn = 100 * time.Millisecond
	retryFn := fantasy.RetryWithExponentialBackoffRespectingRetryHeaders[struct{}](opts)
	_, _ = retryFn(c.ctx, func() (struct{}, error) {
		return struct{}{}, providerErr
	})
}

// surfaceError shows a model/provider error in the footer banner and hands
// control back to the prompt. The failed turn leaves no trace in the
// transcript beyond the user's own message.
func (c *Chat) surfaceError(e errs.Error) tea.Cmd {
	c.closeActiveStream()
	reason := e.ReasonText()
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	c.banner = reason
	c.waitingSince = time.Time{}
	c.activeTool = ""
	c.streamBuf.Reset()
	c.dirtyOutput = true
	c.state = chatInputState
	c.resizeViewport()
	c.refreshViewport()
	return nil
}

func (c *Chat) finishTurn() {
	// Move streamed response into history buffer.
	if c.streamBuf.Len() > 0 {
		fmt.Fprintf(&c.historyBuf, "%s\n\n", c.streamBuf.String())
		c.streamBuf.Reset()
	}
	c.dirtyOutput = true
}

func (c *Chat) closeActiveStream() {
	if c.activeStream != nil {
		_ = c.activeStream.Close()
		c.activeStream = nil
	}
	if c.activeCancel != nil {
		c.activeCancel()
		c.activeCancel = nil
	}
}

func (c *Chat) refreshViewport() {
	combined := c.historyBuf.String() + c.streamBuf.String()
	if combined == "" {
		c.viewport.SetContent("")
		return
	}

	rendered, err := c.glam.Render(combined)
	if err != nil {
		rendered = combined
	}
	rendered = strings.TrimRightFunc(rendered, unicode.IsSpace)
	rendered += "\n"

	truncated := c.renderer.NewStyle().MaxWidth(c.width).Render(rendered)

	wasAtBottom := c.viewport.ScrollPercent() >= 1.0
	c.viewport.SetContent(truncated)
	if wasAtBottom {
		c.viewport.GotoBottom()
	}
	c.dirtyOutput = false
}

func (c *Chat) renderTickCmd() tea.Cmd {
	const renderInterval = 33 * time.Millisecond
	return tea.Tick(renderInterval, func(time.Time) tea.Msg {
		return chatRenderMsg{}
	})
}

func (c *Chat) waitingTickCmd() tea.Cmd {
	const waitingInterval = 200 * time.Millisecond
	return tea.Tick(waitingInterval, func(time.Time) tea.Msg {
		return chatWaitingTickMsg{}
	})
}

func (c *Chat) footerLineCount() int {
	if c.state == chatStreamState && c.streamBuf.Len() == 0 {
		if !c.cfg.Quiet && c.anim != nil {
			return 4
		}
		return 3
	}
	return 3
}

func (c *Chat) resizeViewport() {
	if c.width > 0 {
		c.viewport.Width = c.width
	}
	h := c.height - c.footerLineCount()
	if h < 1 {
		h = 1
	}
	c.viewport.Height = h
}

func (c *Chat) waitingStatus(now time.Time) string {
	label := "Waiting for response..."
	if c.activeTool != "" {
		label = "Running " + c.activeTool + "..."
	}
	if c.waitingSince.IsZero() {
		return c.styles.Comment.Render(label)
	}

	elapsed := now.Sub(c.waitingSince)
	if elapsed < 0 {
		elapsed = 0
	}

	return c.styles.Comment.Render(label + " [" + formatElapsedClock(elapsed) + "]")
}

func formatElapsedClock(d time.Duration) string {
	totalSeconds := int(d / time.Second)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
