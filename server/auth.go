package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	roleUser  = "user"
	roleAdmin = "admin"
)

var errUserExists = errors.New("User already exists")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}

// handleRegister creates an account after checking the emailed code
func (s *Server) handleRegister(c echo.Context) error {
	var req api.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}
	if !validEmail(email) {
		return fail(c, http.StatusBadRequest, "Invalid email format")
	}
	if len(req.Password) < 6 {
		return fail(c, http.StatusBadRequest, "Password must be at least 6 characters long")
	}

	if res := s.checkCode(c.Request().Context(), email, strings.TrimSpace(req.VerificationCode)); !res.Success {
		return c.JSON(http.StatusBadRequest, res)
	}

	user, err := s.createUser(email, req.Password, roleUser, s.cfg.TrialsPerUser)
	if errors.Is(err, errUserExists) {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		logger.Error("Failed to create user", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "Registration failed")
	}

	return s.authenticated(c, user, "Registration successful")
}

// handleLogin checks credentials
func (s *Server) handleLogin(c echo.Context) error {
	var req api.LoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required")
	}

	user, hash, err := s.userByEmail(email)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}

	return s.authenticated(c, user, "Login successful")
}

func (s *Server) authenticated(c echo.Context, user *model.Profile, msg string) error {
	token, err := s.issueToken(user.ID)
	if err != nil {
		logger.Error("Failed to sign token", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "Login failed")
	}

	logger.Info(msg, logger.F("email", user.Email))
	return c.JSON(http.StatusOK, api.AuthResponse{
		Envelope:    api.Envelope{Success: true, Message: msg},
		AccessToken: token,
		User:        user,
	})
}

// handleUserInfo returns the token owner's profile
func (s *Server) handleUserInfo(c echo.Context) error {
	user, err := s.userByID(userID(c))
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to get user info")
	}
	return c.JSON(http.StatusOK, api.UserInfoResponse{Envelope: api.Envelope{Success: true}, User: user})
}

func (s *Server) createUser(email, password, role string, trials int) (*model.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRow(s.q(`
		INSERT INTO users (email, password_hash, role, trial_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`),
		email, string(hash), role, trials, s.cfg.Now().Unix(),
	).Scan(&id)
	if err != nil {
		if msg := strings.ToLower(err.Error()); strings.Contains(msg, "unique") {
			return nil, errUserExists
		}
		return nil, err
	}

	return profile(id, email, role, trials), nil
}

func (s *Server) userByEmail(email string) (*model.Profile, string, error) {
	var (
		id     int64
		hash   string
		role   string
		trials int
	)
	err := s.db.QueryRow(s.q(`
		SELECT id, password_hash, role, trial_count FROM users WHERE email = $1`),
		email,
	).Scan(&id, &hash, &role, &trials)
	if err != nil {
		return nil, "", err
	}
	return profile(id, email, role, trials), hash, nil
}

func (s *Server) userByID(id int64) (*model.Profile, error) {
	var (
		email  string
		role   string
		trials int
	)
	err := s.db.QueryRow(s.q(`
		SELECT email, role, trial_count FROM users WHERE id = $1`),
		id,
	).Scan(&email, &role, &trials)
	if err != nil {
		return nil, err
	}
	return profile(id, email, role, trials), nil
}

// profile reports admins with the unlimited sentinel
func profile(id int64, email, role string, trials int) *model.Profile {
	p := &model.Profile{ID: id, Email: email, IsAdmin: role == roleAdmin, TrialCount: trials}
	if p.IsAdmin {
		p.TrialCount = model.UnlimitedTrials
	}
	return p
}

// ensureAdmin creates the configured admin account if it is missing
func (s *Server) ensureAdmin() error {
	email := normalizeEmail(s.cfg.AdminEmail)
	if email == "" || s.cfg.AdminPassword == "" {
		return nil
	}
	if _, _, err := s.userByEmail(email); err == nil {
		return nil
	}
	_, err := s.createUser(email, s.cfg.AdminPassword, roleAdmin, model.UnlimitedTrials)
	if err == nil {
		logger.Info("Admin account created", logger.F("email", email))
	}
	return err
}
