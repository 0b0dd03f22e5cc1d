package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"time"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/logger"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Error codes reported alongside verification failures
const (
	codeRateLimited     = "RATE_LIMITED"
	codeNotFound        = "CODE_NOT_FOUND"
	codeExpired         = "CODE_EXPIRED"
	codeTooManyAttempts = "TOO_MANY_ATTEMPTS"
	codeInvalid         = "INVALID_CODE"
)

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// reserveSend applies the per-email send interval.
// It returns how long the caller still has to wait, or zero.
func (s *Server) reserveSend(email string, now time.Time) time.Duration {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	lim, ok := s.limiters[email]
	if !ok {
		lim = rate.NewLimiter(rate.Every(s.cfg.SendInterval), 1)
		s.limiters[email] = lim
	}

	r := lim.ReserveN(now, 1)
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return wait
	}
	return 0
}

// handleSendCode issues a one-time code for email
func (s *Server) handleSendCode(c echo.Context) error {
	var req api.SendCodeRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}
	email := normalizeEmail(req.Email)
	if email == "" || !validEmail(email) {
		return fail(c, http.StatusBadRequest, "Invalid email format")
	}

	now := s.cfg.Now()
	if wait := s.reserveSend(email, now); wait > 0 {
		return c.JSON(http.StatusTooManyRequests, api.SendCodeResponse{Envelope: api.Envelope{
			Message: fmt.Sprintf("Please wait %d seconds before trying again", int(math.Ceil(wait.Seconds()))),
			Code:    codeRateLimited,
		}})
	}

	code, err := generateCode()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Failed to send verification email")
	}

	_, err = s.db.ExecContext(c.Request().Context(), s.q(`
		INSERT INTO verification_codes (email, code, expires_at, attempts, sent_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (email) DO UPDATE SET
			code = excluded.code,
			expires_at = excluded.expires_at,
			attempts = 0,
			sent_at = excluded.sent_at`),
		email, code, now.Add(s.cfg.CodeTTL).Unix(), now.Unix(),
	)
	if err != nil {
		logger.Error("Failed to store verification code", logger.F("error", err))
		return fail(c, http.StatusInternalServerError, "Failed to send verification email")
	}

	// No mail transport in development: the code goes to the log and, optionally, the response
	logger.Info("Verification code issued", logger.F("email", email), logger.F("code", code))

	resp := api.SendCodeResponse{
		Envelope:         api.Envelope{Success: true, Message: "Verification code sent to " + email},
		ExpiresInMinutes: int(s.cfg.CodeTTL / time.Minute),
	}
	if s.cfg.ExposeCodes {
		resp.DevCode = code
	}
	return c.JSON(http.StatusOK, resp)
}

// handleVerifyCode checks a code without registering
func (s *Server) handleVerifyCode(c echo.Context) error {
	var req api.VerifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}

	res := s.checkCode(c.Request().Context(), normalizeEmail(req.Email), req.Code)
	if !res.Success {
		return c.JSON(http.StatusBadRequest, res)
	}
	return c.JSON(http.StatusOK, res)
}

// checkCode validates and, on success, consumes the code for email
func (s *Server) checkCode(ctx context.Context, email, input string) api.VerifyCodeResponse {
	failed := func(code, msg string) api.VerifyCodeResponse {
		return api.VerifyCodeResponse{Envelope: api.Envelope{Message: msg, Code: code}}
	}

	var (
		code      string
		expiresAt int64
		attempts  int
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT code, expires_at, attempts FROM verification_codes WHERE email = $1`),
		email,
	).Scan(&code, &expiresAt, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return failed(codeNotFound, "No verification code found for this email")
	}
	if err != nil {
		logger.Error("Failed to read verification code", logger.F("error", err))
		return failed("", "Verification failed")
	}

	now := s.cfg.Now()
	if now.Unix() > expiresAt {
		s.dropCode(ctx, email)
		return failed(codeExpired, "Verification code has expired")
	}
	if attempts >= s.cfg.MaxAttempts {
		s.dropCode(ctx, email)
		return failed(codeTooManyAttempts, "Too many failed attempts. Please request a new code.")
	}

	if input == code {
		s.dropCode(ctx, email)
		logger.Info("Verification code accepted", logger.F("email", email))
		return api.VerifyCodeResponse{Envelope: api.Envelope{Success: true, Message: "Verification successful"}}
	}

	attempts++
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE verification_codes SET attempts = $1 WHERE email = $2`), attempts, email); err != nil {
		logger.Error("Failed to record attempt", logger.F("error", err))
	}
	remaining := s.cfg.MaxAttempts - attempts
	res := failed(codeInvalid, fmt.Sprintf("Invalid verification code. %d attempts remaining.", remaining))
	res.RemainingAttempts = &remaining
	return res
}

func (s *Server) dropCode(ctx context.Context, email string) {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM verification_codes WHERE email = $1`), email); err != nil {
		logger.Error("Failed to delete verification code", logger.F("error", err))
	}
}
