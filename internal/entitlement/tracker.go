// Package entitlement tracks how many generations the logged in user has left.
package entitlement

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
)

// API is the part of the backend that owns trials
type API interface {
	CheckTrial(ctx context.Context) (*api.TrialStatusResponse, error)
	UseTrial(ctx context.Context, kind string) (*api.UseTrialResponse, error)
}

// Tracker caches the last entitlement reported by the backend.
// The cache lives in memory only and is never adjusted locally.
type Tracker struct {
	mu      sync.Mutex
	api     API
	current model.Entitlement
	known   bool
}

// NewTracker creates a tracker with nothing cached
func NewTracker(client API) *Tracker {
	return &Tracker{api: client}
}

// FetchStatus asks the backend for the current entitlement
func (t *Tracker) FetchStatus(ctx context.Context) (model.Entitlement, error) {
	resp, err := t.api.CheckTrial(ctx)
	if err != nil {
		t.forget()
		return model.Entitlement{}, classify(err, "Failed to check trial status")
	}
	if !resp.Success {
		t.forget()
		return model.Entitlement{}, &apperr.EntitlementError{Message: orDefault(resp.Reason(), "Failed to check trial status")}
	}

	e := model.Entitlement{RemainingTrials: max(resp.RemainingTrials, 0), IsAdmin: resp.IsAdmin}
	t.set(e)
	logger.Debug("Trial status", logger.F("remaining", e.RemainingTrials), logger.F("admin", e.IsAdmin))
	return e, nil
}

// ConsumeTrial spends one trial tagged with kind. On error nothing was
// consumed and the caller must not go on to generate.
func (t *Tracker) ConsumeTrial(ctx context.Context, kind string) (model.Entitlement, error) {
	resp, err := t.api.UseTrial(ctx, kind)
	if err != nil {
		t.forget()
		logger.Warn("Trial not consumed", logger.F("kind", kind), logger.F("error", err))
		return model.Entitlement{}, classify(err, apperr.MsgNoTrials)
	}
	if !resp.Success {
		t.forget()
		return model.Entitlement{}, &apperr.EntitlementError{Message: orDefault(resp.Reason(), apperr.MsgNoTrials), Exhausted: true}
	}

	e := model.Entitlement{RemainingTrials: max(resp.RemainingTrials, 0), IsAdmin: resp.IsAdmin}
	t.set(e)
	logger.Info("Trial consumed", logger.F("kind", kind), logger.F("remaining", e.RemainingTrials))
	return e, nil
}

// Current returns the cached entitlement and whether one is known
func (t *Tracker) Current() (model.Entitlement, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.known
}

// Reset drops the cache, e.g. on logout
func (t *Tracker) Reset() {
	t.forget()
}

func (t *Tracker) set(e model.Entitlement) {
	t.mu.Lock()
	t.current, t.known = e, true
	t.mu.Unlock()
}

func (t *Tracker) forget() {
	t.mu.Lock()
	t.current, t.known = model.Entitlement{}, false
	t.mu.Unlock()
}

// classify maps a transport or HTTP failure onto the error taxonomy.
// Connectivity errors pass through; 401 means the session is gone.
func classify(err error, fallback string) error {
	if apperr.IsConnectivity(err) {
		return err
	}
	var re *apperr.RequestError
	if errors.As(err, &re) {
		switch re.Status {
		case http.StatusUnauthorized, http.StatusUnprocessableEntity:
			return &apperr.AuthenticationError{Message: apperr.MsgLoginRequired, LoginRequired: true, Err: err}
		case http.StatusBadRequest, http.StatusForbidden, http.StatusTooManyRequests:
			return &apperr.EntitlementError{Message: orDefault(re.Message, fallback), Exhausted: true, Err: err}
		}
		return &apperr.EntitlementError{Message: orDefault(re.Message, fallback), Err: err}
	}
	return &apperr.EntitlementError{Message: fallback, Err: err}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
