package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/joyful/internal/ui"
)

// Color palette
var (
	Primary   = lipgloss.Color("#4ECDC4")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	Text      = lipgloss.Color("#FFFFFF")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")

	Success = lipgloss.Color("#95E1A3")
	Warning = lipgloss.Color("#FFE66D")
	Danger  = lipgloss.Color("#FF6B6B")
	Info    = lipgloss.Color("#4ECDC4")
)

// Styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	PromptBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	PromptBoxFocusedStyle = PromptBoxStyle.
				BorderForeground(Primary)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(Text).
			Background(Primary).
			Bold(true).
			Padding(0, 2)

	ButtonDisabledStyle = lipgloss.NewStyle().
				Foreground(TextMuted).
				Background(Surface).
				Padding(0, 2)

	ResultItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	ResultItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	InlineErrorStyle = lipgloss.NewStyle().
				Foreground(Danger).
				Padding(0, 1)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	// Login/register dialog
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Width(20)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	ToastStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true)
)

// LevelStyle colours the character counter
func LevelStyle(l ui.Level) lipgloss.Style {
	switch l {
	case ui.LevelError:
		return lipgloss.NewStyle().Foreground(Danger)
	case ui.LevelWarning:
		return lipgloss.NewStyle().Foreground(Warning)
	default:
		return HelpStyle
	}
}

// ToastColor returns the colour of a toast kind
func ToastColor(k ui.ToastKind) lipgloss.Color {
	switch k {
	case ui.ToastSuccess:
		return Success
	case ui.ToastWarning:
		return Warning
	case ui.ToastError:
		return Danger
	default:
		return Info
	}
}
