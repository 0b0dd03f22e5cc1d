package ui

import (
	"errors"
	"fmt"

	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/workflow"
)

// ToastKind picks the toast colour
type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastWarning
	ToastError
)

func (k ToastKind) String() string {
	switch k {
	case ToastSuccess:
		return "success"
	case ToastWarning:
		return "warning"
	case ToastError:
		return "error"
	default:
		return "info"
	}
}

// Toast is a transient notification
type Toast struct {
	Kind    ToastKind
	Message string
}

// ErrorToast turns any failure into a message the user can act on
func ErrorToast(err error) Toast {
	if errors.Is(err, workflow.ErrInFlight) {
		return Toast{Kind: ToastInfo, Message: "Generation already in progress"}
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return Toast{Kind: ToastWarning, Message: err.Error()}
	case apperr.KindConnectivity:
		return Toast{Kind: ToastError, Message: apperr.MsgBackendUnavailable}
	case apperr.KindGeneration:
		return Toast{Kind: ToastError, Message: "Generation failed: " + err.Error()}
	default:
		return Toast{Kind: ToastError, Message: err.Error()}
	}
}

// TrialToast summarises a freshly fetched entitlement
func TrialToast(e model.Entitlement) Toast {
	switch {
	case e.IsAdmin:
		return Toast{Kind: ToastSuccess, Message: "Admin account: Unlimited generations"}
	case e.RemainingTrials > 0:
		return Toast{Kind: ToastInfo, Message: fmt.Sprintf("You have %d free generations remaining", e.RemainingTrials)}
	default:
		return Toast{Kind: ToastWarning, Message: "No free generations remaining"}
	}
}

// GeneratedToast announces a rendered group
func GeneratedToast(n int) Toast {
	noun := "images"
	if n == 1 {
		noun = "image"
	}
	return Toast{Kind: ToastSuccess, Message: fmt.Sprintf("%d %s generated successfully!", n, noun)}
}

// HealthToast warns about a backend that cannot generate; ok is false when all is well
func HealthToast(apiKeyConfigured bool, err error) (Toast, bool) {
	if err != nil {
		return Toast{Kind: ToastError, Message: "Warning: Backend API is not available. Please start the backend server."}, true
	}
	if !apiKeyConfigured {
		return Toast{Kind: ToastWarning, Message: "Warning: API key not configured on the backend."}, true
	}
	return Toast{}, false
}

// Apply folds a workflow event into s, returning toasts to show
func Apply(s State, ev workflow.Event) (State, []Toast) {
	var toasts []Toast
	s.Phase = ev.State

	switch ev.State {
	case workflow.Validating:
		s.Progress = 0
		s.InlineError = ""
	case workflow.Requesting:
		if ev.Progress > s.Progress {
			s.Progress = ev.Progress
		}
	case workflow.Rendering:
		if ev.Progress > 0 {
			s.Progress = ev.Progress
		}
		if ev.Group != nil {
			s.Results++
			toasts = append(toasts, GeneratedToast(len(ev.Group.Images)))
		}
	case workflow.Failed:
		toasts = append(toasts, ErrorToast(ev.Err))
		var ae *apperr.AuthenticationError
		if errors.As(ev.Err, &ae) && ae.LoginRequired {
			s.Modal = ModalLogin
			s.Profile = nil
		}
		var ee *apperr.EntitlementError
		if errors.As(ev.Err, &ee) {
			if ee.Exhausted {
				s.Entitlement, s.EntitlementKnown = model.Entitlement{}, true
			} else {
				s.EntitlementKnown = false
			}
		}
		if apperr.KindOf(ev.Err) == apperr.KindGeneration {
			s.InlineError = ev.Err.Error()
		}
	case workflow.Idle:
		s.Progress = 0
	}

	if ev.Entitlement != nil {
		s.Entitlement, s.EntitlementKnown = *ev.Entitlement, true
	}
	return s, toasts
}
