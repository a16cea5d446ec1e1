package tui

import (
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hsolanki/seochat/internal/present"
)

const (
	charCyclingFPS  = time.Second / 22
	maxCyclingChars = 120
)

var cyclingCharRunes = []rune("0123456789abcdefABCDEF~!@#$£€%^&*()+=_")

type animStepMsg struct{}

// anim is the "thinking" indicator shown while waiting for the first chunk of
// a response: a short run of cycling characters in a gradient, followed by the
// status label.
type anim struct {
	cyclingChars int
	label        string
	ramp         []lipgloss.Color
	styles       present.Styles
	frame        int
	cells        []rune
}

func newAnim(fanciness uint, label string, r *lipgloss.Renderer, s present.Styles) tea.Model {
	n := int(fanciness)
	if n > maxCyclingChars {
		n = maxCyclingChars
	}
	a := &anim{
		cyclingChars: n,
		label:        label,
		ramp:         present.MakeGradientRamp(max(n, 1)),
		styles:       s,
		cells:        make([]rune, n),
	}
	a.shuffle()
	return a
}

func (a *anim) shuffle() {
	for i := range a.cells {
		a.cells[i] = cyclingCharRunes[rand.Intn(len(cyclingCharRunes))] //nolint:gosec
	}
}

// Init implements tea.Model.
func (a *anim) Init() tea.Cmd {
	return a.step()
}

// Update implements tea.Model.
func (a *anim) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(animStepMsg); ok {
		a.frame++
		a.shuffle()
		return a, a.step()
	}
	return a, nil
}

// View implements tea.Model.
func (a *anim) View() string {
	var b strings.Builder
	for i, r := range a.cells {
		c := a.ramp[(i+a.frame)%len(a.ramp)]
		b.WriteString(a.styles.CyclingChars.Foreground(c).Render(string(r)))
	}
	if a.label != "" {
		if len(a.cells) > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a.styles.Comment.Render(a.label))
	}
	return b.String()
}

func (a *anim) step() tea.Cmd {
	return tea.Tick(charCyclingFPS, func(time.Time) tea.Msg {
		return animStepMsg{}
	})
}
