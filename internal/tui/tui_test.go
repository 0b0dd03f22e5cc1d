package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/joyful/internal/app"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/config"
	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/storage"
	"github.com/existflow/joyful/internal/ui"
	"github.com/existflow/joyful/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := &config.Config{
		APIBaseURL:     "http://127.0.0.1:1/api",
		RequestTimeout: time.Second,
		OutputDir:      t.TempDir(),
	}
	a := app.New(cfg, storage.NewMemory(), app.Options{})
	m := NewModel(context.Background(), a, NewBridge())
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func keyMsg(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func typeText(t *testing.T, m Model, s string) Model {
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestRatioAndCountCycle(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, model.RatioSquare, m.state.Ratio)
	assert.Equal(t, 1, m.state.Count)

	m = update(t, m, keyMsg(tea.KeyCtrlR))
	assert.Equal(t, model.RatioSquare.Next(), m.state.Ratio)

	for _, want := range []int{2, 3, 4, 1} {
		m = update(t, m, keyMsg(tea.KeyCtrlN))
		assert.Equal(t, want, m.state.Count)
	}

	// locked while generating
	m.state.Phase = workflow.Requesting
	m = update(t, m, keyMsg(tea.KeyCtrlN))
	assert.Equal(t, 1, m.state.Count)
}

func TestGenerateWithEmptyPromptWarns(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg(tea.KeyEnter))

	require.Len(t, m.toasts, 1)
	assert.Equal(t, ui.ToastWarning, m.toasts[0].Kind)
	assert.Equal(t, workflow.MsgEmptyPrompt, m.toasts[0].Message)
}

func TestGenerateWithoutTrialsWarns(t *testing.T) {
	m := newTestModel(t)
	m.state.Profile = &model.Profile{Email: "a@b.com"}
	m.state.EntitlementKnown = true
	m = typeText(t, m, "a cat")
	m = update(t, m, keyMsg(tea.KeyEnter))

	require.Len(t, m.toasts, 1)
	assert.Equal(t, apperr.MsgNoTrials, m.toasts[0].Message)
	assert.Contains(t, m.View(), "No trials remaining")
}

func TestTypingUpdatesCounter(t *testing.T) {
	m := newTestModel(t)
	m = typeText(t, m, "a cat")
	assert.Equal(t, "a cat", m.input.Value())
	assert.Contains(t, m.View(), "5/500")
	assert.Contains(t, m.View(), "Generate Image")
}

func TestEventsDriveTheView(t *testing.T) {
	m := newTestModel(t)
	m.state.Profile = &model.Profile{Email: "a@b.com"}

	m = update(t, m, eventMsg(workflow.Event{State: workflow.Validating}))
	e := model.Entitlement{RemainingTrials: 3}
	m = update(t, m, eventMsg(workflow.Event{State: workflow.ConsumingTrial, Entitlement: &e}))
	m = update(t, m, eventMsg(workflow.Event{State: workflow.Requesting, Progress: 40}))

	assert.Equal(t, 40, m.state.Progress)
	view := m.View()
	assert.Contains(t, view, "Remaining generations: 3")
	assert.Contains(t, view, "Generating...")

	group := model.ResultGroup{ID: "g1", Prompt: "a cat", Ratio: model.RatioSquare, Images: []model.Image{{Base64: "AAAA"}}}
	m.app.Results.Append(group)
	m = update(t, m, eventMsg(workflow.Event{State: workflow.Rendering, Group: &group}))
	m = update(t, m, eventMsg(workflow.Event{State: workflow.Idle}))

	assert.Len(t, m.groups, 1)
	assert.Equal(t, 0, m.state.Progress)
	require.NotEmpty(t, m.toasts)
	assert.Equal(t, "1 image generated successfully!", m.toasts[len(m.toasts)-1].Message)
}

func TestRefusedTrialDisablesGenerate(t *testing.T) {
	m := newTestModel(t)
	m.state.Profile = &model.Profile{Email: "a@b.com"}
	m.state.Entitlement, m.state.EntitlementKnown = model.Entitlement{RemainingTrials: 1}, true

	err := &apperr.EntitlementError{Message: apperr.MsgNoTrials, Exhausted: true}
	m = update(t, m, eventMsg(workflow.Event{State: workflow.Failed, Err: err}))
	m = update(t, m, eventMsg(workflow.Event{State: workflow.Idle}))

	assert.True(t, m.state.EntitlementKnown)
	assert.Equal(t, 0, m.state.Entitlement.RemainingTrials)
	view := m.View()
	assert.Contains(t, view, "No trials remaining")
	assert.Contains(t, view, "Remaining generations: 0")
}

func TestLoginRequiredOpensLogin(t *testing.T) {
	m := newTestModel(t)
	err := &apperr.AuthenticationError{Message: apperr.MsgLoginRequired, LoginRequired: true}
	m = update(t, m, eventMsg(workflow.Event{State: workflow.Failed, Err: err}))

	require.NotNil(t, m.form)
	assert.Equal(t, ui.ModalLogin, m.form.kind)
	assert.Contains(t, m.View(), "Login")

	m = update(t, m, keyMsg(tea.KeyEsc))
	assert.Nil(t, m.form)
	assert.Equal(t, ui.ModalNone, m.state.Modal)
}

func TestRegisterFormNavigation(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg(tea.KeyCtrlU))
	require.NotNil(t, m.form)
	assert.Equal(t, ui.ModalRegister, m.form.kind)
	assert.Len(t, m.form.inputs, 4)

	m = typeText(t, m, "a@b.com")
	assert.Equal(t, "a@b.com", m.form.value(fieldEmail))

	m = update(t, m, keyMsg(tea.KeyTab))
	assert.Equal(t, fieldPassword, m.form.focus)
	m = update(t, m, keyMsg(tea.KeyShiftTab))
	m = update(t, m, keyMsg(tea.KeyShiftTab))
	assert.Equal(t, fieldCode, m.form.focus)

	// switching dialogs starts over
	m = update(t, m, keyMsg(tea.KeyCtrlL))
	assert.Equal(t, ui.ModalLogin, m.form.kind)
	assert.Empty(t, m.form.value(fieldEmail))
}

func TestAuthResultClosesForm(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, keyMsg(tea.KeyCtrlL))

	m = update(t, m, authMsg{kind: ui.ModalLogin, err: &apperr.AuthenticationError{Message: "Invalid email or password"}})
	require.NotNil(t, m.form)
	assert.Equal(t, "Invalid email or password", m.form.err)

	st := app.Status{
		Profile:          &model.Profile{Email: "a@b.com", IsAdmin: true},
		Entitlement:      model.Entitlement{IsAdmin: true, RemainingTrials: model.UnlimitedTrials},
		EntitlementKnown: true,
	}
	m = update(t, m, authMsg{kind: ui.ModalLogin, st: st})
	assert.Nil(t, m.form)
	assert.Contains(t, m.View(), "a@b.com (admin)")
	assert.Contains(t, m.View(), "Remaining generations: Unlimited")
}

func TestResultKeys(t *testing.T) {
	m := newTestModel(t)
	for _, id := range []string{"g1", "g2"} {
		m.app.Results.Append(model.ResultGroup{ID: id, Prompt: id, Images: []model.Image{{Base64: "AAAA"}, {Base64: "BBBB"}}})
	}
	m = update(t, m, generatedMsg{group: &model.ResultGroup{ID: "g2"}})
	assert.Equal(t, 1, m.cursor)

	m = update(t, m, keyMsg(tea.KeyTab))
	assert.Equal(t, FocusResults, m.focus)

	m = update(t, m, keyMsg(tea.KeyRight))
	assert.Equal(t, 1, m.imgCursor)
	m = update(t, m, keyMsg(tea.KeyUp))
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, 0, m.imgCursor)

	m = typeText(t, m, "d")
	assert.Len(t, m.groups, 1)
	assert.Equal(t, "g2", m.groups[0].ID)

	m = typeText(t, m, "X")
	assert.Empty(t, m.groups)
	assert.Contains(t, m.View(), "Your generated images will appear here")
}

func TestToastsExpireAndAreCapped(t *testing.T) {
	m := newTestModel(t)
	for i := range 5 {
		m.addToast(ui.Toast{Message: string(rune('a' + i))})
	}
	require.Len(t, m.toasts, maxToasts)
	assert.Equal(t, "c", m.toasts[0].Message)

	m = update(t, m, toastExpiredMsg{id: m.toasts[0].id})
	assert.Len(t, m.toasts, maxToasts-1)
}

func TestBridgeDropsAfterClose(t *testing.T) {
	b := NewBridge()
	b.Close()
	b.Close()

	done := make(chan struct{})
	go func() {
		for range 100 {
			b.Observe(workflow.Event{State: workflow.Requesting})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Observe blocked after Close")
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "éé...", truncate("éééééé", 5))
}
