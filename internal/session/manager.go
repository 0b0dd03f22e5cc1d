package session

import (
	"context"
	"strings"
	"time"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const minPasswordLength = 6

// AuthAPI is the part of the backend the manager talks to
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, email, password, code string) (*api.AuthResponse, error)
	UserInfo(ctx context.Context) (*api.UserInfoResponse, error)
}

// Resetter is notified when the session ends
type Resetter interface {
	Reset()
}

// Manager owns the login state
type Manager struct {
	store    *Store
	api      AuthAPI
	onLogout []Resetter
	now      func() time.Time
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// ResetOnLogout registers state to drop whenever the session ends
func ResetOnLogout(r Resetter) ManagerOption {
	return func(m *Manager) { m.onLogout = append(m.onLogout, r) }
}

// WithManagerClock replaces time.Now, for tests
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager
func NewManager(store *Store, client AuthAPI, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, api: client, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying session store
func (m *Manager) Store() *Store {
	return m.store
}

// Login checks the credentials locally, then against the backend
func (m *Manager) Login(ctx context.Context, email, password string) (*model.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Invalid(missingField(email, password), MsgFillAllFields)
	}
	if !looksLikeEmail(email) {
		return nil, apperr.Invalid("email", MsgInvalidEmail)
	}

	logger.Info("Logging in", logger.F("email", email))
	resp, err := m.api.Login(ctx, email, password)
	return m.establish(ctx, resp, err, "Login failed")
}

// Register validates the form in a fixed order and creates the account.
// The code must have been sent through flow to the same email.
func (m *Manager) Register(ctx context.Context, flow *Registration, email, password, confirm, code string) (*model.Profile, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)

	switch {
	case email == "" || password == "" || confirm == "":
		return nil, apperr.Invalid(missingField(email, password, confirm), MsgFillAllFields)
	case !looksLikeEmail(email):
		return nil, apperr.Invalid("email", MsgInvalidEmail)
	case len([]rune(password)) < minPasswordLength:
		return nil, apperr.Invalid("password", MsgPasswordTooShort)
	case password != confirm:
		return nil, apperr.Invalid("confirm_password", MsgPasswordMismatch)
	case flow == nil || !flow.Issued(email):
		return nil, apperr.Invalid("verification_code", MsgSendCodeFirst)
	case !codePattern.MatchString(code):
		return nil, apperr.Invalid("verification_code", MsgInvalidCode)
	}

	logger.Info("Registering", logger.F("email", email))
	resp, err := m.api.Register(ctx, email, password, code)
	profile, err := m.establish(ctx, resp, err, "Registration failed")
	if err != nil {
		return nil, err
	}
	flow.Reset()
	return profile, nil
}

// establish turns an auth response into a persisted session
func (m *Manager) establish(ctx context.Context, resp *api.AuthResponse, err error, fallback string) (*model.Profile, error) {
	if err != nil {
		msg := apperr.ServerMessage(err, fallback)
		if apperr.IsConnectivity(err) {
			msg = apperr.MsgBackendUnavailable
		}
		logger.Warn("Authentication failed", logger.F("error", err))
		return nil, &apperr.AuthenticationError{Message: msg, Err: err}
	}
	if !resp.Success || resp.AccessToken == "" {
		return nil, &apperr.AuthenticationError{Message: orDefault(resp.Reason(), fallback)}
	}

	if err := m.store.Save(ctx, resp.AccessToken, resp.User); err != nil {
		return nil, err
	}
	if resp.User != nil {
		logger.Info("Session established", logger.F("email", resp.User.Email), logger.F("admin", resp.User.IsAdmin))
	}
	return resp.User, nil
}

// IsAuthenticated reports whether a token is stored
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	token, err := m.store.LoadToken(ctx)
	if err != nil {
		logger.Warn("Failed to read session", logger.F("error", err))
		return false
	}
	return token != ""
}

// Logout forgets the session locally. The backend keeps no session to end.
func (m *Manager) Logout(ctx context.Context) error {
	for _, r := range m.onLogout {
		r.Reset()
	}
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	logger.Info("Logged out")
	return nil
}

// Restore loads the persisted session on start-up.
// An expired token is cleared and reported as logged out.
func (m *Manager) Restore(ctx context.Context) (*model.Session, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return sess, nil
	}

	sess.ExpiresAt = tokenExpiry(sess.Token)
	if !sess.ExpiresAt.IsZero() && m.now().After(sess.ExpiresAt) {
		logger.Info("Stored session expired", logger.F("expired_at", sess.ExpiresAt))
		if err := m.Logout(ctx); err != nil {
			return nil, err
		}
		return &model.Session{}, nil
	}
	return sess, nil
}

// RefreshProfile re-reads the profile from the backend and caches it.
// A rejected token ends the session.
func (m *Manager) RefreshProfile(ctx context.Context) (*model.Profile, error) {
	token, err := m.store.LoadToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, &apperr.AuthenticationError{Message: apperr.MsgLoginRequired, LoginRequired: true}
	}

	resp, err := m.api.UserInfo(ctx)
	if api.IsUnauthorized(err) {
		_ = m.Logout(ctx)
		return nil, &apperr.AuthenticationError{Message: apperr.MsgLoginRequired, LoginRequired: true, Err: err}
	}
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.User == nil {
		return nil, &apperr.RequestError{Endpoint: api.PathUserInfo, Message: orDefault(resp.Reason(), apperr.MsgRequestFailed)}
	}

	if err := m.store.Save(ctx, token, resp.User); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
// Opaque tokens have no known expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func missingField(values ...string) string {
	names := []string{"email", "password", "confirm_password"}
	for i, v := range values {
		if v == "" && i < len(names) {
			return names[i]
		}
	}
	return ""
}
