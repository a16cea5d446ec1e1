package present

import "github.com/charmbracelet/lipgloss"

const horizontalEdgePadding = 2

// Styles is the shared style set for CLI and TUI output.
type Styles struct {
	AppName          lipgloss.Style
	CliArgs          lipgloss.Style
	Comment          lipgloss.Style
	CyclingChars     lipgloss.Style
	ErrorHeader      lipgloss.Style
	ErrorDetails     lipgloss.Style
	ErrPadding       lipgloss.Style
	Flag             lipgloss.Style
	FlagComma        lipgloss.Style
	FlagDesc         lipgloss.Style
	InlineCode       lipgloss.Style
	Link             lipgloss.Style
	Pipe             lipgloss.Style
	Quote            lipgloss.Style
	ConversationList lipgloss.Style
	SHA              lipgloss.Style
	Timeago          lipgloss.Style
}

// MakeStyles builds the style set for the given renderer.
func MakeStyles(r *lipgloss.Renderer) (s Styles) {
	s.AppName = r.NewStyle().Bold(true)
	s.CliArgs = r.NewStyle().Foreground(lipgloss.Color("#585858"))
	s.Comment = r.NewStyle().Foreground(lipgloss.Color("#757575"))
	s.CyclingChars = r.NewStyle().Foreground(lipgloss.Color("#FF87D7"))
	s.ErrorHeader = r.NewStyle().Foreground(lipgloss.Color("#F1F1F1")).Background(lipgloss.Color("#FF5F87")).Bold(true).Padding(0, 1).SetString("ERROR")
	s.ErrorDetails = s.Comment
	s.ErrPadding = r.NewStyle().Padding(0, horizontalEdgePadding)
	s.Flag = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00B594", Dark: "#3EEFCF"}).Bold(true)
	s.FlagComma = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5DD6C0", Dark: "#427C72"}).SetString(",")
	s.FlagDesc = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#656565", Dark: "#999999"})
	s.InlineCode = r.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Background(lipgloss.Color("#3A3A3A")).Padding(0, 1)
	s.Link = r.NewStyle().Foreground(lipgloss.Color("#00AF87")).Underline(true)
	s.Pipe = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8470FF", Dark: "#745CFF"})
	s.Quote = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF71D0", Dark: "#FF78D2"})
	s.ConversationList = r.NewStyle().Padding(0, 1)
	s.SHA = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1F8C77", Dark: "#3EEFCF"})
	s.Timeago = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"})
	return s
}
