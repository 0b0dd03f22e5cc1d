package session

import (
	"context"
	"time"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/model"
)

// fakeAPI records calls and replies with canned responses
type fakeAPI struct {
	Calls []string

	LoginResp    *api.AuthResponse
	LoginErr     error
	RegisterResp *api.AuthResponse
	RegisterErr  error
	UserInfoResp *api.UserInfoResponse
	UserInfoErr  error
	SendResp     *api.SendCodeResponse
	SendErr      error
	VerifyResp   *api.VerifyCodeResponse
	VerifyErr    error

	LastEmail    string
	LastPassword string
	LastCode     string
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	f.Calls = append(f.Calls, api.PathLogin)
	f.LastEmail, f.LastPassword = email, password
	if f.LoginResp == nil {
		f.LoginResp = &api.AuthResponse{}
	}
	return f.LoginResp, f.LoginErr
}

func (f *fakeAPI) Register(ctx context.Context, email, password, code string) (*api.AuthResponse, error) {
	f.Calls = append(f.Calls, api.PathRegister)
	f.LastEmail, f.LastPassword, f.LastCode = email, password, code
	if f.RegisterResp == nil {
		f.RegisterResp = &api.AuthResponse{}
	}
	return f.RegisterResp, f.RegisterErr
}

func (f *fakeAPI) UserInfo(ctx context.Context) (*api.UserInfoResponse, error) {
	f.Calls = append(f.Calls, api.PathUserInfo)
	if f.UserInfoResp == nil {
		f.UserInfoResp = &api.UserInfoResponse{}
	}
	return f.UserInfoResp, f.UserInfoErr
}

func (f *fakeAPI) SendVerificationCode(ctx context.Context, email string) (*api.SendCodeResponse, error) {
	f.Calls = append(f.Calls, api.PathSendCode)
	f.LastEmail = email
	if f.SendResp == nil {
		f.SendResp = &api.SendCodeResponse{Envelope: api.Envelope{Success: true}}
	}
	return f.SendResp, f.SendErr
}

func (f *fakeAPI) VerifyEmailCode(ctx context.Context, email, code string) (*api.VerifyCodeResponse, error) {
	f.Calls = append(f.Calls, api.PathVerifyCode)
	f.LastEmail, f.LastCode = email, code
	if f.VerifyResp == nil {
		f.VerifyResp = &api.VerifyCodeResponse{Envelope: api.Envelope{Success: true}}
	}
	return f.VerifyResp, f.VerifyErr
}

func okAuth(email string) *api.AuthResponse {
	return &api.AuthResponse{
		Envelope:    api.Envelope{Success: true},
		AccessToken: "token-for-" + email,
		User:        &model.Profile{ID: 1, Email: email, TrialCount: 5},
	}
}

func rejected(status int, msg string) error {
	return &apperr.RequestError{Status: status, Message: msg}
}

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type resetCounter struct{ n int }

func (r *resetCounter) Reset() { r.n++ }

func okUserInfo(p *model.Profile) *api.UserInfoResponse {
	return &api.UserInfoResponse{Envelope: api.Envelope{Success: true}, User: p}
}
