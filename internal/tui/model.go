package tui

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/joyful/internal/app"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/session"
	"github.com/existflow/joyful/internal/ui"
	"github.com/existflow/joyful/internal/workflow"
)

// Focus is the part of the screen receiving keys
type Focus int

const (
	FocusPrompt Focus = iota
	FocusResults
)

// Bridge carries workflow events from the generating goroutine into the
// bubbletea loop. Pass Observe to app.Options.Observers.
type Bridge struct {
	events chan workflow.Event
	done   chan struct{}
	once   sync.Once
}

// NewBridge creates a bridge
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan workflow.Event, 64),
		done:   make(chan struct{}),
	}
}

// Observe forwards ev to the UI; it drops events once the UI has stopped
func (b *Bridge) Observe(ev workflow.Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// Close stops delivery
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

// toastEntry is a toast on screen
type toastEntry struct {
	id int
	ui.Toast
}

// form is the login or register dialog
type form struct {
	kind   ui.Modal
	inputs []textinput.Model
	focus  int
	err    string
	busy   bool
	flow   *session.Registration // register only
}

// Register form field order
const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
	fieldCode
)

// Model is the main TUI model
type Model struct {
	ctx    context.Context
	app    *app.App
	bridge *Bridge

	state ui.State
	input textinput.Model
	bar   progress.Model

	focus     Focus
	cursor    int // selected result group
	imgCursor int // selected image in that group
	groups    []model.ResultGroup

	form     *form
	showHelp bool

	toasts    []toastEntry
	nextToast int

	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, a *app.App, bridge *Bridge) Model {
	logger.Info("Initializing TUI model")

	ti := textinput.New()
	ti.Placeholder = "Describe the image you want..."
	ti.CharLimit = model.MaxPromptLength
	ti.Width = 60
	ti.Prompt = "❯ "
	ti.Focus()

	return Model{
		ctx:    ctx,
		app:    a,
		bridge: bridge,
		state: ui.State{
			Ratio: model.DefaultRatio,
			Count: 1,
		},
		input: ti,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		focus: FocusPrompt,
	}
}

// frame renders the pure view state
func (m Model) frame() ui.Frame {
	s := m.state
	s.Prompt = m.input.Value()
	return ui.Render(s)
}

func (m *Model) reloadResults() {
	m.groups = m.app.Results.Groups()
	m.state.Results = len(m.groups)
	if m.cursor >= len(m.groups) {
		m.cursor = max(len(m.groups)-1, 0)
	}
	m.clampImage()
}

func (m *Model) clampImage() {
	g := m.currentGroup()
	if g == nil {
		m.imgCursor = 0
		return
	}
	if m.imgCursor >= len(g.Images) {
		m.imgCursor = max(len(g.Images)-1, 0)
	}
}

func (m *Model) currentGroup() *model.ResultGroup {
	if m.cursor < len(m.groups) {
		return &m.groups[m.cursor]
	}
	return nil
}

// applyStatus loads a freshly established session into the view state
func (m *Model) applyStatus(st app.Status) {
	m.state.Profile = st.Profile
	m.state.Entitlement = st.Entitlement
	m.state.EntitlementKnown = st.EntitlementKnown
}

func newForm(kind ui.Modal, a *app.App) *form {
	f := &form{kind: kind}
	labels := []string{"Email", "Password"}
	if kind == ui.ModalRegister {
		labels = append(labels, "Confirm password", "Verification code")
		f.flow = a.NewRegistration()
	}
	for i, label := range labels {
		ti := textinput.New()
		ti.Placeholder = label
		ti.Width = 32
		ti.Prompt = ""
		switch i {
		case fieldPassword, fieldConfirm:
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		case fieldCode:
			ti.CharLimit = 6
		}
		f.inputs = append(f.inputs, ti)
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) value(i int) string {
	if i < len(f.inputs) {
		return f.inputs[i].Value()
	}
	return ""
}

func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}
