package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/app"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/gallery"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/session"
	"github.com/existflow/joyful/internal/ui"
	"github.com/existflow/joyful/internal/workflow"
)

const (
	toastTTL  = 4 * time.Second
	maxToasts = 3
)

// tickMsg is sent every second to refresh countdowns
type tickMsg time.Time

type restoredMsg struct {
	st  app.Status
	err error
}

type healthMsg struct {
	resp *api.HealthResponse
	err  error
}

// eventMsg wraps a workflow event delivered through the bridge
type eventMsg workflow.Event

type generatedMsg struct {
	group *model.ResultGroup
	err   error
}

type authMsg struct {
	kind ui.Modal
	st   app.Status
	err  error
}

type codeSentMsg struct {
	ch  *session.Challenge
	err error
}

type loggedOutMsg struct {
	quiet bool
	err   error
}

type exportMsg struct{ toast ui.Toast }

type toastExpiredMsg struct{ id int }

// Init restores the session, checks the backend and starts listening for events
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.restore(), m.checkHealth(), m.waitForEvent(), textinput.Blink, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent listens for workflow events
func (m Model) waitForEvent() tea.Cmd {
	if m.bridge == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ev := <-m.bridge.events:
			return eventMsg(ev)
		case <-m.bridge.done:
			return nil
		}
	}
}

func (m Model) restore() tea.Cmd {
	return func() tea.Msg {
		st, err := m.app.Restore(m.ctx)
		return restoredMsg{st: st, err: err}
	}
}

func (m Model) checkHealth() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.app.Health(m.ctx)
		return healthMsg{resp: resp, err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(min(60, msg.Width-12), 10)
		m.input.Width = max(min(80, msg.Width-10), 20)
		return m, nil

	case restoredMsg:
		if msg.err != nil {
			logger.Warn("Failed to restore session", logger.F("error", msg.err))
			return m.toast(ui.ErrorToast(msg.err))
		}
		m.applyStatus(msg.st)
		if msg.st.EntitlementKnown {
			return m.toast(ui.TrialToast(msg.st.Entitlement))
		}
		return m, nil

	case healthMsg:
		configured := msg.err == nil && msg.resp.APIKeyConfigured
		if t, warn := ui.HealthToast(configured, msg.err); warn {
			return m.toast(t)
		}
		return m, nil

	case eventMsg:
		return m.handleEvent(workflow.Event(msg))

	case generatedMsg:
		m.reloadResults()
		if msg.err == nil {
			m.cursor = max(len(m.groups)-1, 0)
			m.imgCursor = 0
			return m, nil
		}
		if errors.Is(msg.err, workflow.ErrInFlight) {
			return m.toast(ui.ErrorToast(msg.err))
		}
		return m, nil

	case authMsg:
		return m.handleAuth(msg)

	case codeSentMsg:
		if m.form == nil {
			return m, nil
		}
		m.form.busy = false
		if msg.err != nil {
			m.form.err = msg.err.Error()
			return m, nil
		}
		m.form.err = ""
		m.form.inputs[m.form.focus].Blur()
		m.form.focus = fieldCode
		m.form.inputs[fieldCode].Focus()
		cmds := []tea.Cmd{m.addToast(ui.Toast{Kind: ui.ToastSuccess, Message: "Verification code sent to " + msg.ch.Email})}
		if msg.ch.DevCode != "" {
			cmds = append(cmds, m.addToast(ui.Toast{Kind: ui.ToastInfo, Message: "Development code: " + msg.ch.DevCode}))
		}
		return m, tea.Batch(cmds...)

	case loggedOutMsg:
		if msg.err != nil {
			return m.toast(ui.ErrorToast(msg.err))
		}
		m.state.Profile = nil
		m.state.EntitlementKnown = false
		if msg.quiet {
			return m, nil
		}
		return m.toast(ui.Toast{Kind: ui.ToastInfo, Message: "Logged out successfully"})

	case exportMsg:
		return m.toast(msg.toast)

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.form != nil {
			return m.updateForm(msg)
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.focus == FocusPrompt {
			return m.updatePrompt(msg)
		}
		return m.handleResultKeys(msg)
	}

	return m, nil
}

// handleEvent folds a workflow event into the view
func (m Model) handleEvent(ev workflow.Event) (tea.Model, tea.Cmd) {
	wasLoggedIn := m.state.Authenticated()

	state, toasts := ui.Apply(m.state, ev)
	m.state = state

	cmds := []tea.Cmd{m.waitForEvent()}
	for _, t := range toasts {
		cmds = append(cmds, m.addToast(t))
	}
	if ev.Group != nil {
		m.reloadResults()
	}
	if m.state.Modal != ui.ModalNone && m.form == nil {
		m.form = newForm(m.state.Modal, m.app)
	}
	if wasLoggedIn && !m.state.Authenticated() {
		// the backend rejected the stored token
		m.state.EntitlementKnown = false
		cmds = append(cmds, m.logout(true))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleAuth(msg authMsg) (tea.Model, tea.Cmd) {
	if m.form == nil || m.form.kind != msg.kind {
		return m, nil
	}
	m.form.busy = false
	if msg.err != nil {
		m.form.err = msg.err.Error()
		return m, nil
	}

	m.form = nil
	m.state.Modal = ui.ModalNone
	m.applyStatus(msg.st)

	text := "Login successful!"
	if msg.kind == ui.ModalRegister {
		text = "Registration successful!"
	}
	cmds := []tea.Cmd{m.addToast(ui.Toast{Kind: ui.ToastSuccess, Message: text})}
	if msg.st.EntitlementKnown {
		cmds = append(cmds, m.addToast(ui.TrialToast(msg.st.Entitlement)))
	}
	return m, tea.Batch(cmds...)
}

// updatePrompt handles keys while the prompt has focus
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleGlobalKeys(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Generate):
		return m.startGenerate()

	case key.Matches(msg, keys.Tab), key.Matches(msg, keys.Escape):
		m.focus = FocusResults
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleGlobalKeys handles bindings that work from either focus
func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Ratio):
		if !m.state.Phase.Busy() {
			m.state.Ratio = m.state.Ratio.Next()
		}
		return nil, true

	case key.Matches(msg, keys.Count):
		if !m.state.Phase.Busy() {
			m.state.Count = m.state.Count%model.MaxImageCount + 1
		}
		return nil, true

	case key.Matches(msg, keys.Login):
		if !m.state.Authenticated() {
			m.openForm(ui.ModalLogin)
		}
		return nil, true

	case key.Matches(msg, keys.Register):
		if !m.state.Authenticated() {
			m.openForm(ui.ModalRegister)
		}
		return nil, true

	case key.Matches(msg, keys.Logout):
		if m.state.Authenticated() {
			return m.logout(false), true
		}
		return nil, true
	}
	return nil, false
}

// handleResultKeys handles keys while the result list has focus
func (m Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleGlobalKeys(msg); ok {
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tab), key.Matches(msg, keys.Escape):
		m.focus = FocusPrompt
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, keys.Help):
		m.showHelp = true

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.imgCursor = 0
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.groups)-1 {
			m.cursor++
			m.imgCursor = 0
		}

	case key.Matches(msg, keys.Left):
		if m.imgCursor > 0 {
			m.imgCursor--
		}

	case key.Matches(msg, keys.Right):
		if g := m.currentGroup(); g != nil && m.imgCursor < len(g.Images)-1 {
			m.imgCursor++
		}

	case key.Matches(msg, keys.Save):
		return m, m.saveImage()

	case key.Matches(msg, keys.SaveGroup):
		return m, m.saveGroup()

	case key.Matches(msg, keys.Copy):
		return m, m.copyImage()

	case key.Matches(msg, keys.Delete):
		if g := m.currentGroup(); g != nil && m.app.Results.Delete(g.ID) {
			m.reloadResults()
			return m.toast(ui.Toast{Kind: ui.ToastInfo, Message: "Result removed"})
		}

	case key.Matches(msg, keys.Clear):
		if len(m.groups) > 0 {
			m.app.Results.Clear()
			m.reloadResults()
			return m.toast(ui.Toast{Kind: ui.ToastInfo, Message: "Results cleared"})
		}
	}

	return m, nil
}

// startGenerate kicks off one generate action in the background
func (m Model) startGenerate() (tea.Model, tea.Cmd) {
	f := m.frame()
	if !f.GenerateEnabled {
		switch {
		case m.state.Phase.Busy():
			return m, nil
		case m.state.EntitlementKnown && !m.state.Entitlement.HasTrials():
			return m.toast(ui.Toast{Kind: ui.ToastWarning, Message: apperr.MsgNoTrials})
		default:
			return m.toast(ui.Toast{Kind: ui.ToastWarning, Message: workflow.MsgEmptyPrompt})
		}
	}

	prompt, ratio, count := m.input.Value(), m.state.Ratio, m.state.Count
	a, ctx := m.app, m.ctx
	return m, func() tea.Msg {
		group, err := a.Generate(ctx, prompt, ratio, count)
		return generatedMsg{group: group, err: err}
	}
}

func (m *Model) openForm(kind ui.Modal) {
	m.form = newForm(kind, m.app)
	m.state.Modal = kind
}

func (m Model) logout(quiet bool) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		return loggedOutMsg{quiet: quiet, err: a.Logout(ctx)}
	}
}

// updateForm handles keys while the login or register dialog is open
func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form

	switch {
	case key.Matches(msg, keys.Escape):
		m.form = nil
		m.state.Modal = ui.ModalNone
		return m, nil

	case key.Matches(msg, keys.Login) && f.kind == ui.ModalRegister:
		m.openForm(ui.ModalLogin)
		return m, nil

	case key.Matches(msg, keys.Register) && f.kind == ui.ModalLogin:
		m.openForm(ui.ModalRegister)
		return m, nil

	case key.Matches(msg, keys.Tab), msg.String() == "down":
		f.move(1)
		return m, nil

	case key.Matches(msg, keys.ShiftTab), msg.String() == "up":
		f.move(-1)
		return m, nil

	case key.Matches(msg, keys.SendCode) && f.kind == ui.ModalRegister:
		return m, m.sendCode()

	case msg.String() == "enter":
		if f.busy {
			return m, nil
		}
		if f.kind == ui.ModalRegister && !f.flow.Issued(f.value(fieldEmail)) {
			return m, m.sendCode()
		}
		return m, m.submit()
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return m, cmd
}

func (m Model) sendCode() tea.Cmd {
	f := m.form
	if f.busy {
		return nil
	}
	if wait := f.flow.ResendIn(); wait > 0 {
		f.err = fmt.Sprintf("Please wait %ds before requesting a new code", countdown(wait))
		return nil
	}
	f.busy = true
	f.err = ""
	flow, email, ctx := f.flow, f.value(fieldEmail), m.ctx
	return func() tea.Msg {
		ch, err := flow.SendCode(ctx, email)
		return codeSentMsg{ch: ch, err: err}
	}
}

func (m Model) submit() tea.Cmd {
	f := m.form
	f.busy = true
	f.err = ""

	a, ctx, kind := m.app, m.ctx, f.kind
	email, password := f.value(fieldEmail), f.value(fieldPassword)
	if kind == ui.ModalLogin {
		return func() tea.Msg {
			st, err := a.Login(ctx, email, password)
			return authMsg{kind: kind, st: st, err: err}
		}
	}

	flow, confirm, code := f.flow, f.value(fieldConfirm), f.value(fieldCode)
	return func() tea.Msg {
		st, err := a.Register(ctx, flow, email, password, confirm, code)
		return authMsg{kind: kind, st: st, err: err}
	}
}

func (m Model) saveImage() tea.Cmd {
	g := m.currentGroup()
	if g == nil || m.imgCursor >= len(g.Images) {
		return nil
	}
	img, n, dir := g.Images[m.imgCursor], m.imgCursor+1, m.app.Config.OutputDir
	return func() tea.Msg {
		path, err := gallery.Save(dir, img, n, time.Now())
		if err != nil {
			logger.Warn("Failed to save image", logger.F("error", err))
			return exportMsg{ui.Toast{Kind: ui.ToastError, Message: "Failed to save image"}}
		}
		return exportMsg{ui.Toast{Kind: ui.ToastSuccess, Message: "Image saved to " + path}}
	}
}

func (m Model) saveGroup() tea.Cmd {
	g := m.currentGroup()
	if g == nil {
		return nil
	}
	group, dir := *g, m.app.Config.OutputDir
	return func() tea.Msg {
		paths, err := gallery.SaveGroup(dir, group, time.Now())
		if err != nil {
			logger.Warn("Failed to save images", logger.F("error", err))
			return exportMsg{ui.Toast{Kind: ui.ToastError, Message: "Failed to save images"}}
		}
		return exportMsg{ui.Toast{Kind: ui.ToastSuccess, Message: fmt.Sprintf("%d images saved to %s", len(paths), dir)}}
	}
}

func (m Model) copyImage() tea.Cmd {
	g := m.currentGroup()
	if g == nil || m.imgCursor >= len(g.Images) {
		return nil
	}
	img := g.Images[m.imgCursor]
	return func() tea.Msg {
		if err := gallery.Copy(img); err != nil {
			logger.Warn("Clipboard copy failed", logger.F("error", err))
			return exportMsg{ui.Toast{Kind: ui.ToastError, Message: "Failed to copy image"}}
		}
		return exportMsg{ui.Toast{Kind: ui.ToastSuccess, Message: "Image copied to clipboard!"}}
	}
}

// toast returns m with t shown
func (m Model) toast(t ui.Toast) (tea.Model, tea.Cmd) {
	cmd := m.addToast(t)
	return m, cmd
}

// addToast shows t and schedules its removal
func (m *Model) addToast(t ui.Toast) tea.Cmd {
	m.nextToast++
	id := m.nextToast
	m.toasts = append(m.toasts, toastEntry{id: id, Toast: t})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}
