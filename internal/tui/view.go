package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/joyful/internal/ui"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	f := m.frame()
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(f),
		m.renderPrompt(f),
		m.renderControls(f),
		m.renderResults(f),
	)

	if m.form != nil {
		body = lipgloss.Place(
			m.width, m.height-3,
			lipgloss.Center, lipgloss.Center,
			m.renderForm(),
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	if m.showHelp {
		body = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderToasts(), m.renderStatusBar())
}

func (m Model) renderHeader(f ui.Frame) string {
	left := HeaderStyle.Render("✨ Joyful")
	var right string
	if f.UserText != "" {
		right = f.UserText
		if f.TrialText != "" {
			right += "  ·  " + f.TrialText
		}
	} else {
		right = "Not logged in  ·  ctrl+l login  ·  ctrl+u register"
	}
	right = HelpStyle.Render(right)

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-1, 1)
	return left + strings.Repeat(" ", gap) + right + "\n"
}

func (m Model) renderPrompt(f ui.Frame) string {
	style := PromptBoxStyle
	if m.focus == FocusPrompt && m.form == nil {
		style = PromptBoxFocusedStyle
	}
	counter := LevelStyle(f.CharLevel).Render(f.CharCount)
	return style.Width(max(m.width-4, 20)).Render(m.input.View()) + "\n" +
		lipgloss.PlaceHorizontal(max(m.width-2, 20), lipgloss.Right, counter)
}

func (m Model) renderControls(f ui.Frame) string {
	ratio := fmt.Sprintf("Ratio %s (%s)", m.state.Ratio, m.state.Ratio.Size())
	count := fmt.Sprintf("Images %d", m.state.Count)

	button := ButtonDisabledStyle.Render(f.GenerateLabel)
	if f.GenerateEnabled {
		button = ButtonStyle.Render(f.GenerateLabel)
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center,
		HelpStyle.Render(ratio+"  ·  "+count+"  "),
		button,
	)
	if f.ShowProgress {
		line += "\n\n" + m.bar.ViewAs(float64(f.Progress)/100) +
			HelpStyle.Render(fmt.Sprintf("  %s", m.state.Phase))
	}
	return " " + line + "\n"
}

func (m Model) renderResults(f ui.Frame) string {
	var s string
	width := max(m.width-2, 20)
	s += lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", width)) + "\n"

	if f.InlineError != "" {
		s += InlineErrorStyle.Render("⚠ "+f.InlineError) + "\n"
	}
	if f.ShowPlaceholder {
		s += HelpStyle.Render("  Your generated images will appear here") + "\n"
		return s
	}

	for i, g := range m.groups {
		selected := i == m.cursor && m.focus == FocusResults
		cursor := "  "
		style := ResultItemStyle
		if selected {
			cursor = "❯ "
			style = ResultItemSelectedStyle
		}

		images := make([]string, len(g.Images))
		for j := range g.Images {
			mark := "○"
			if selected && j == m.imgCursor {
				mark = "●"
			}
			images[j] = mark
		}

		line := fmt.Sprintf("%s%-5s %s  %s  %s",
			cursor,
			g.Ratio,
			strings.Join(images, " "),
			HelpStyle.Render(g.CreatedAt.Format("15:04")),
			truncate(g.Prompt, max(width-30, 10)),
		)
		s += style.Render(line) + "\n"
	}
	return s
}

func (m Model) renderForm() string {
	f := m.form
	title := "Login"
	labels := []string{"Email", "Password"}
	hint := "enter login · ctrl+u register instead · esc cancel"
	if f.kind == ui.ModalRegister {
		title = "Create account"
		labels = append(labels, "Confirm password", "Verification code")
		hint = "ctrl+s send code · enter register · ctrl+l login instead · esc cancel"
	}

	var s string
	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render(title) + "\n\n"
	for i, in := range f.inputs {
		marker := "  "
		if i == f.focus {
			marker = "❯ "
		}
		s += marker + LabelStyle.Render(labels[i]) + in.View() + "\n"
	}

	if f.kind == ui.ModalRegister {
		s += "\n" + m.renderChallenge() + "\n"
	}
	if f.busy {
		s += "\n" + HelpStyle.Render("Please wait...") + "\n"
	}
	if f.err != "" {
		s += "\n" + lipgloss.NewStyle().Foreground(Danger).Render(f.err) + "\n"
	}
	s += "\n" + HelpStyle.Render(hint)

	return ModalStyle.Width(64).Render(s)
}

func (m Model) renderChallenge() string {
	ch := m.form.flow.Challenge()
	if ch == nil {
		return HelpStyle.Render("No code sent yet")
	}
	status := "Code sent to " + ch.Email
	if wait := m.form.flow.ResendIn(); wait > 0 {
		status += fmt.Sprintf(" · resend in %ds", countdown(wait))
	} else {
		status += " · ctrl+s to resend"
	}
	return HelpStyle.Render(status)
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		lines[i] = ToastStyle.Foreground(ToastColor(t.Kind)).Render(t.Message)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatusBar() string {
	var help string
	switch {
	case m.form != nil:
		help = "tab next field · shift+tab previous · esc close"
	case m.focus == FocusPrompt:
		help = "enter generate · ctrl+r ratio · ctrl+n count · tab results · ctrl+c quit"
	default:
		help = "↑/↓ select · ←/→ image · s save · S save all · c copy · d delete · tab prompt · ? help · q quit"
	}
	if m.state.Authenticated() && m.form == nil {
		help += " · ctrl+o logout"
	}
	return StatusBarStyle.Width(max(m.width, 1)).Render(help)
}

func (m Model) renderHelp() string {
	help := `
  Joyful Help
  ───────────

  Prompt
    enter        Generate images for the prompt
    ctrl+r       Cycle aspect ratio
    ctrl+n       Cycle image count (1-4)
    tab / esc    Move to the results

  Results
    ↑/k ↓/j      Select result
    ←/h →/l      Select image
    s            Save selected image
    S            Save every image of the result
    c            Copy selected image to clipboard
    d            Remove result
    X            Clear all results
    tab / esc    Back to the prompt

  Account
    ctrl+l       Login
    ctrl+u       Register
    ctrl+o       Logout

  Press any key to close
`
	return lipgloss.NewStyle().Padding(1, 2).Render(help)
}
