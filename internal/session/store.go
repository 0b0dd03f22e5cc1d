// Package session persists the login state and runs the login, registration
// and logout flows against the backend.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/storage"
)

// Storage keys
const (
	KeyToken   = "joyful_auth_token"
	KeyProfile = "joyful_user_info"
)

// Store maps the session onto two fixed keys of a key/value store
type Store struct {
	kv storage.KV
}

// NewStore creates a session store over kv
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Save persists token and profile. A nil profile removes any cached one.
func (s *Store) Save(ctx context.Context, token string, profile *model.Profile) error {
	if token == "" {
		return apperr.Invalid("token", "cannot save a session without a token")
	}
	if profile == nil {
		if err := s.kv.Delete(ctx, KeyProfile); err != nil {
			return fmt.Errorf("failed to clear profile: %w", err)
		}
		return s.kv.Set(ctx, KeyToken, token)
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	if b, ok := s.kv.(storage.Batcher); ok {
		return b.SetMany(ctx, map[string]string{KeyToken: token, KeyProfile: string(data)})
	}
	if err := s.kv.Set(ctx, KeyToken, token); err != nil {
		return err
	}
	return s.kv.Set(ctx, KeyProfile, string(data))
}

// LoadToken returns the stored token, or "" if there is none
func (s *Store) LoadToken(ctx context.Context) (string, error) {
	token, _, err := s.kv.Get(ctx, KeyToken)
	return token, err
}

// Token implements api.TokenSource
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.LoadToken(ctx)
}

// LoadProfile returns the cached profile, or nil if there is none.
// A profile stored without a token is stale and gets discarded.
func (s *Store) LoadProfile(ctx context.Context) (*model.Profile, error) {
	token, err := s.LoadToken(ctx)
	if err != nil {
		return nil, err
	}

	raw, ok, err := s.kv.Get(ctx, KeyProfile)
	if err != nil || !ok {
		return nil, err
	}

	if token == "" {
		logger.Debug("Discarding stale profile")
		return nil, s.kv.Delete(ctx, KeyProfile)
	}

	var p model.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		logger.Warn("Discarding unreadable profile", logger.F("error", err))
		return nil, s.kv.Delete(ctx, KeyProfile)
	}
	return &p, nil
}

// Load returns the whole session; Token is "" when logged out
func (s *Store) Load(ctx context.Context) (*model.Session, error) {
	token, err := s.LoadToken(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.LoadProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &model.Session{Token: token, Profile: profile}, nil
}

// Clear removes token and profile together
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyToken, KeyProfile)
}
