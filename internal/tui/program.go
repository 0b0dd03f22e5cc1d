// Package tui is the interactive terminal front end.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/joyful/internal/app"
)

// Run starts the TUI on a and blocks until the user quits
func Run(ctx context.Context, a *app.App, bridge *Bridge) error {
	defer bridge.Close()

	m := NewModel(ctx, a, bridge)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
