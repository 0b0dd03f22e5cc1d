// Package ui projects session, entitlement and workflow state onto what the
// user sees. Everything here is pure; the terminal front end draws the Frame.
package ui

import (
	"fmt"
	"strings"

	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/workflow"
)

// Modal identifies the dialog on top of the workspace
type Modal int

const (
	ModalNone Modal = iota
	ModalLogin
	ModalRegister
)

// Level colours secondary text
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelError
)

// State is everything the frame depends on
type State struct {
	Profile          *model.Profile // nil when logged out
	Entitlement      model.Entitlement
	EntitlementKnown bool
	Phase            workflow.State
	Progress         int
	Prompt           string
	Ratio            model.Ratio
	Count            int
	Results          int
	Modal            Modal
	InlineError      string // last generation failure, shown in the result area
}

// Authenticated reports whether a profile is loaded
func (s State) Authenticated() bool {
	return s.Profile != nil
}

// Frame is the rendered control surface
type Frame struct {
	GenerateEnabled bool
	GenerateLabel   string
	ShowProgress    bool
	Progress        int
	ShowPlaceholder bool
	InlineError     string
	TrialText       string // empty when unknown
	UserText        string
	ShowAuthButtons bool // login/register when logged out, logout otherwise
	CharCount       string
	CharLevel       Level
	Modal           Modal
}

// Render computes the frame for s
func Render(s State) Frame {
	f := Frame{
		ShowProgress:    s.Phase.Busy(),
		Progress:        s.Progress,
		ShowPlaceholder: s.Results == 0 && !s.Phase.Busy(),
		InlineError:     s.InlineError,
		ShowAuthButtons: !s.Authenticated(),
		Modal:           s.Modal,
	}
	f.CharCount, f.CharLevel = CharCount(s.Prompt)

	if s.Authenticated() {
		f.UserText = s.Profile.Email
		if s.Profile.IsAdmin {
			f.UserText += " (admin)"
		}
	}
	if s.EntitlementKnown {
		f.TrialText = "Remaining generations: " + s.Entitlement.Display()
	}

	f.GenerateEnabled, f.GenerateLabel = generateControl(s)
	return f
}

func generateControl(s State) (bool, string) {
	if s.Phase.Busy() {
		return false, "Generating..."
	}
	if s.EntitlementKnown && !s.Entitlement.HasTrials() {
		return false, "No trials remaining"
	}
	return strings.TrimSpace(s.Prompt) != "", GenerateLabel(s.Count)
}

// GenerateLabel is the idle button text for count images
func GenerateLabel(count int) string {
	if count == 1 {
		return "Generate Image"
	}
	return "Generate Images"
}

// CharCount returns "n/500" and how close the prompt is to the limit
func CharCount(prompt string) (string, Level) {
	n := len([]rune(prompt))
	text := fmt.Sprintf("%d/%d", min(n, model.MaxPromptLength), model.MaxPromptLength)
	switch {
	case n*10 > model.MaxPromptLength*9:
		return text, LevelError
	case n*10 > model.MaxPromptLength*8:
		return text, LevelWarning
	default:
		return text, LevelNormal
	}
}
