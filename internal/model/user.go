package model

import "time"

// Profile is the cached, user-facing part of an account
type Profile struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	TrialCount int    `json:"trial_count"`
}

// Session is the locally persisted login state.
// A Profile is only meaningful while Token is set.
type Session struct {
	Token     string
	Profile   *Profile
	ExpiresAt time.Time // zero when the token carries no expiry
}

// IsAuthenticated returns true if a token is present
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != ""
}

// IsExpired returns true if the token has a known expiry in the past
func (s *Session) IsExpired() bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}
