package api

import (
	"context"
	"net/http"

	"github.com/existflow/joyful/internal/model"
)

// Endpoint paths relative to the base URL
const (
	PathLogin      = "/login"
	PathRegister   = "/register"
	PathSendCode   = "/send-verification-code"
	PathVerifyCode = "/verify-email-code"
	PathUserInfo   = "/user/info"
	PathCheckTrial = "/user/check-trial"
	PathUseTrial   = "/user/use-trial"
	PathGenerate   = "/generate"
	PathHealth     = "/health"
	PathRatios     = "/ratios"
)

// Envelope is the common part of every reply
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Reason returns the server-supplied explanation, if any
func (e Envelope) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verification_code"`
}

type AuthResponse struct {
	Envelope
	AccessToken string         `json:"access_token"`
	User        *model.Profile `json:"user"`
}

type SendCodeRequest struct {
	Email string `json:"email"`
}

type SendCodeResponse struct {
	Envelope
	ExpiresInMinutes int    `json:"expires_in_minutes,omitempty"`
	DevCode          string `json:"dev_code,omitempty"` // only set by the development backend
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyCodeResponse struct {
	Envelope
	RemainingAttempts *int `json:"remaining_attempts,omitempty"`
}

type UserInfoResponse struct {
	Envelope
	User *model.Profile `json:"user"`
}

type TrialStatusResponse struct {
	Envelope
	HasTrials       bool `json:"has_trials"`
	RemainingTrials int  `json:"remaining_trials"`
	IsAdmin         bool `json:"is_admin"`
}

type UseTrialRequest struct {
	DemoType string `json:"demo_type"`
}

type UseTrialResponse struct {
	Envelope
	RemainingTrials int  `json:"remaining_trials"`
	IsAdmin         bool `json:"is_admin"`
}

type GenerateResponse struct {
	Envelope
	Images     []model.Image `json:"images"`
	TaskStatus string        `json:"task_status,omitempty"`
}

type HealthResponse struct {
	Status           string `json:"status"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

type RatiosResponse struct {
	Envelope
	Ratios []model.RatioInfo `json:"ratios"`
}

// Login posts credentials to /login
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.Request(ctx, http.MethodPost, PathLogin, LoginRequest{Email: email, Password: password}, &resp)
	return &resp, err
}

// Register creates an account via /register
func (c *Client) Register(ctx context.Context, email, password, code string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.Request(ctx, http.MethodPost, PathRegister, RegisterRequest{
		Email:            email,
		Password:         password,
		VerificationCode: code,
	}, &resp)
	return &resp, err
}

// SendVerificationCode asks the backend to email a one-time code
func (c *Client) SendVerificationCode(ctx context.Context, email string) (*SendCodeResponse, error) {
	var resp SendCodeResponse
	err := c.Request(ctx, http.MethodPost, PathSendCode, SendCodeRequest{Email: email}, &resp)
	return &resp, err
}

// VerifyEmailCode checks a code without registering
func (c *Client) VerifyEmailCode(ctx context.Context, email, code string) (*VerifyCodeResponse, error) {
	var resp VerifyCodeResponse
	err := c.Request(ctx, http.MethodPost, PathVerifyCode, VerifyCodeRequest{Email: email, Code: code}, &resp)
	return &resp, err
}

// UserInfo fetches the profile of the token owner
func (c *Client) UserInfo(ctx context.Context) (*UserInfoResponse, error) {
	var resp UserInfoResponse
	err := c.Request(ctx, http.MethodGet, PathUserInfo, nil, &resp)
	return &resp, err
}

// CheckTrial fetches the trial status of the token owner
func (c *Client) CheckTrial(ctx context.Context) (*TrialStatusResponse, error) {
	var resp TrialStatusResponse
	err := c.Request(ctx, http.MethodGet, PathCheckTrial, nil, &resp)
	return &resp, err
}

// UseTrial consumes one trial unit tagged with kind
func (c *Client) UseTrial(ctx context.Context, kind string) (*UseTrialResponse, error) {
	var resp UseTrialResponse
	err := c.Request(ctx, http.MethodPost, PathUseTrial, UseTrialRequest{DemoType: kind}, &resp)
	return &resp, err
}

// Generate asks the backend to render images for req
func (c *Client) Generate(ctx context.Context, req model.GenerationRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	err := c.Request(ctx, http.MethodPost, PathGenerate, req, &resp)
	return &resp, err
}

// Health reports backend liveness and whether generation is configured
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.Request(ctx, http.MethodGet, PathHealth, nil, &resp)
	return &resp, err
}

// Ratios lists the aspect ratios the backend accepts
func (c *Client) Ratios(ctx context.Context) (*RatiosResponse, error) {
	var resp RatiosResponse
	err := c.Request(ctx, http.MethodGet, PathRatios, nil, &resp)
	return &resp, err
}
