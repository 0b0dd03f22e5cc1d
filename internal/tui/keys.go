package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Tab       key.Binding
	ShiftTab  key.Binding
	Generate  key.Binding
	Ratio     key.Binding
	Count     key.Binding
	Save      key.Binding
	SaveGroup key.Binding
	Copy      key.Binding
	Delete    key.Binding
	Clear     key.Binding
	Login     key.Binding
	Register  key.Binding
	Logout    key.Binding
	SendCode  key.Binding
	Help      key.Binding
	Quit      key.Binding
	Escape    key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev image")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next image")),
	Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
	ShiftTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
	Generate:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "generate")),
	Ratio:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "aspect ratio")),
	Count:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "image count")),
	Save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save image")),
	SaveGroup: key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "save all")),
	Copy:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
	Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Clear:     key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "clear results")),
	Login:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "login")),
	Register:  key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "register")),
	Logout:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "logout")),
	SendCode:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "send code")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}
