package session

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/logger"
)

// ResendInterval is how long the send button stays disabled after a code is sent
const ResendInterval = 60 * time.Second

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Validation messages shared by login and registration
const (
	MsgFillAllFields    = "Please fill in all fields"
	MsgInvalidEmail     = "Please enter a valid email address"
	MsgPasswordTooShort = "Password must be at least 6 characters long"
	MsgPasswordMismatch = "Passwords do not match"
	MsgSendCodeFirst    = "Please send a verification code first"
	MsgInvalidCode      = "Please enter the 6-digit verification code"
)

// CodeAPI is the part of the backend that issues and checks email codes
type CodeAPI interface {
	SendVerificationCode(ctx context.Context, email string) (*api.SendCodeResponse, error)
	VerifyEmailCode(ctx context.Context, email, code string) (*api.VerifyCodeResponse, error)
}

// Challenge records a code sent to Email
type Challenge struct {
	Email   string
	SentAt  time.Time
	DevCode string // echoed back by the development backend only
}

// ResendAt is when another code may be requested
func (c Challenge) ResendAt() time.Time {
	return c.SentAt.Add(ResendInterval)
}

// Registration is the state of one registration attempt.
// The challenge it holds is bound to the email the code was sent to.
type Registration struct {
	mu        sync.Mutex
	api       CodeAPI
	now       func() time.Time
	challenge *Challenge
}

// RegistrationOption configures a Registration
type RegistrationOption func(*Registration)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) RegistrationOption {
	return func(r *Registration) { r.now = now }
}

// NewRegistration starts a registration flow
func NewRegistration(codes CodeAPI, opts ...RegistrationOption) *Registration {
	r := &Registration{api: codes, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SendCode asks the backend to email a code and starts the resend countdown
func (r *Registration) SendCode(ctx context.Context, email string) (*Challenge, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.Invalid("email", MsgFillAllFields)
	}
	if !looksLikeEmail(email) {
		return nil, apperr.Invalid("email", MsgInvalidEmail)
	}
	if wait := r.ResendIn(); wait > 0 {
		return nil, apperr.Invalid("email", fmt.Sprintf("Please wait %ds before requesting a new code", int(math.Ceil(wait.Seconds()))))
	}

	resp, err := r.api.SendVerificationCode(ctx, email)
	if err != nil {
		logger.Warn("Verification code request failed", logger.F("email", email), logger.F("error", err))
		return nil, err
	}
	if !resp.Success {
		return nil, &apperr.RequestError{Endpoint: api.PathSendCode, Message: orDefault(resp.Reason(), apperr.MsgRequestFailed)}
	}

	c := &Challenge{Email: email, SentAt: r.now(), DevCode: resp.DevCode}
	r.mu.Lock()
	r.challenge = c
	r.mu.Unlock()

	logger.Info("Verification code sent", logger.F("email", email))
	copied := *c
	return &copied, nil
}

// ResendIn is the remaining countdown; zero when a code may be sent
func (r *Registration) ResendIn() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.challenge == nil {
		return 0
	}
	if d := r.challenge.ResendAt().Sub(r.now()); d > 0 {
		return d
	}
	return 0
}

// CanResend reports whether the countdown has elapsed
func (r *Registration) CanResend() bool {
	return r.ResendIn() == 0
}

// Issued reports whether a code was sent in this flow to email
func (r *Registration) Issued(email string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.challenge != nil && strings.EqualFold(r.challenge.Email, normalizeEmail(email))
}

// Challenge returns a copy of the outstanding challenge, or nil
func (r *Registration) Challenge() *Challenge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.challenge == nil {
		return nil
	}
	c := *r.challenge
	return &c
}

// Verify checks code against the backend without registering
func (r *Registration) Verify(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if !r.Issued(email) {
		return apperr.Invalid("verification_code", MsgSendCodeFirst)
	}
	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		return apperr.Invalid("verification_code", MsgInvalidCode)
	}

	resp, err := r.api.VerifyEmailCode(ctx, email, code)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &apperr.RequestError{Endpoint: api.PathVerifyCode, Message: orDefault(resp.Reason(), apperr.MsgRequestFailed)}
	}
	return nil
}

// Reset drops the outstanding challenge
func (r *Registration) Reset() {
	r.mu.Lock()
	r.challenge = nil
	r.mu.Unlock()
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// looksLikeEmail is deliberately loose: an @ and a dot
func looksLikeEmail(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
