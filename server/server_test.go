package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	srv   *Server
	http  *httptest.Server
	clock *testClock
	token string
}

func (h *harness) client() *api.Client {
	return api.NewClient(h.http.URL+"/api", api.TokenFunc(func(ctx context.Context) (string, error) {
		return h.token, nil
	}))
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	clk := &testClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}

	cfg := DefaultConfig()
	cfg.DatabaseURL = ""
	cfg.JWTSecret = []byte("test-secret")
	cfg.AdminEmail, cfg.AdminPassword = "", ""
	cfg.TrialsPerUser = 5
	cfg.GenerationEnabled = true
	cfg.Now = clk.Now
	for _, m := range mutate {
		m(&cfg)
	}

	srv, err := New(cfg)
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		hs.Close()
		srv.Close()
	})
	return &harness{srv: srv, http: hs, clock: clk}
}

// register signs up email through the code flow and keeps the token
func (h *harness) register(t *testing.T, email string) *api.AuthResponse {
	t.Helper()
	c := h.client()
	sent, err := c.SendVerificationCode(context.Background(), email)
	require.NoError(t, err)
	require.Len(t, sent.DevCode, 6)

	resp, err := c.Register(context.Background(), email, "secret1", sent.DevCode)
	require.NoError(t, err)
	require.True(t, resp.Success)
	h.token = resp.AccessToken
	return resp
}

func TestHealthAndRatios(t *testing.T) {
	h := newHarness(t)
	c := h.client()

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.APIKeyConfigured)

	ratios, err := c.Ratios(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SupportedRatios, ratios.Ratios)
}

func TestRegisterLoginAndInfo(t *testing.T) {
	h := newHarness(t)
	reg := h.register(t, "New@Example.com")
	assert.Equal(t, "new@example.com", reg.User.Email)
	assert.Equal(t, 5, reg.User.TrialCount)

	c := h.client()
	_, err := c.Login(context.Background(), "new@example.com", "wrong-password")
	assert.EqualError(t, err, "Invalid email or password")
	assert.True(t, api.IsUnauthorized(err))

	login, err := c.Login(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	h.token = login.AccessToken

	info, err := c.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, info.User.ID)
}

func TestRegisterRequiresCode(t *testing.T) {
	h := newHarness(t)
	c := h.client()

	_, err := c.Register(context.Background(), "a@b.com", "secret1", "123456")
	var re *apperr.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "No verification code found for this email", re.Message)

	h.register(t, "a@b.com")
	h.clock.Advance(2 * time.Minute)
	sent, err := c.SendVerificationCode(context.Background(), "a@b.com")
	require.NoError(t, err)
	_, err = c.Register(context.Background(), "a@b.com", "secret1", sent.DevCode)
	assert.EqualError(t, err, "User already exists")
}

func TestSendCodeRateLimited(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	ctx := context.Background()

	_, err := c.SendVerificationCode(ctx, "a@b.com")
	require.NoError(t, err)

	h.clock.Advance(20 * time.Second)
	_, err = c.SendVerificationCode(ctx, "a@b.com")
	var re *apperr.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusTooManyRequests, re.Status)
	assert.Equal(t, "Please wait 40 seconds before trying again", re.Message)

	_, err = c.SendVerificationCode(ctx, "other@b.com")
	require.NoError(t, err, "limit is per email")

	h.clock.Advance(40 * time.Second)
	_, err = c.SendVerificationCode(ctx, "a@b.com")
	require.NoError(t, err)
}

func TestVerifyCodeRules(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	ctx := context.Background()

	sent, err := c.SendVerificationCode(ctx, "a@b.com")
	require.NoError(t, err)
	wrong := "000000"
	if sent.DevCode == wrong {
		wrong = "111111"
	}

	_, err = c.VerifyEmailCode(ctx, "a@b.com", wrong)
	assert.EqualError(t, err, "Invalid verification code. 2 attempts remaining.")
	_, err = c.VerifyEmailCode(ctx, "a@b.com", wrong)
	require.Error(t, err)
	_, err = c.VerifyEmailCode(ctx, "a@b.com", wrong)
	assert.EqualError(t, err, "Invalid verification code. 0 attempts remaining.")
	_, err = c.VerifyEmailCode(ctx, "a@b.com", sent.DevCode)
	assert.EqualError(t, err, "Too many failed attempts. Please request a new code.")

	h.clock.Advance(time.Minute)
	sent, err = c.SendVerificationCode(ctx, "a@b.com")
	require.NoError(t, err)
	h.clock.Advance(11 * time.Minute)
	_, err = c.VerifyEmailCode(ctx, "a@b.com", sent.DevCode)
	assert.EqualError(t, err, "Verification code has expired")

	sent, err = c.SendVerificationCode(ctx, "a@b.com")
	require.NoError(t, err)
	resp, err := c.VerifyEmailCode(ctx, "a@b.com", sent.DevCode)
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	ctx := context.Background()

	_, err := c.CheckTrial(ctx)
	assert.True(t, api.IsUnauthorized(err))

	_, err = c.Generate(ctx, model.NewGenerationRequest("a cat", model.RatioSquare, 1))
	assert.True(t, api.IsUnauthorized(err))

	h.token = "not-a-jwt"
	_, err = c.UserInfo(ctx)
	assert.True(t, api.IsUnauthorized(err))
}

func TestTokenExpires(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TokenTTL = time.Hour })
	h.register(t, "a@b.com")

	_, err := h.client().CheckTrial(context.Background())
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	_, err = h.client().CheckTrial(context.Background())
	assert.True(t, api.IsUnauthorized(err))
}

func TestTrialsRunOut(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TrialsPerUser = 2 })
	h.register(t, "a@b.com")
	c := h.client()
	ctx := context.Background()

	status, err := c.CheckTrial(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.RemainingTrials)
	assert.True(t, status.HasTrials)

	used, err := c.UseTrial(ctx, model.TrialKindImage)
	require.NoError(t, err)
	assert.Equal(t, 1, used.RemainingTrials)
	_, err = c.UseTrial(ctx, model.TrialKindImage)
	require.NoError(t, err)

	_, err = c.UseTrial(ctx, model.TrialKindImage)
	var re *apperr.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadRequest, re.Status)
	assert.Equal(t, "No trials remaining", re.Message)

	status, err = c.CheckTrial(ctx)
	require.NoError(t, err)
	assert.False(t, status.HasTrials)
}

func TestAdminIsUnlimited(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.AdminEmail, c.AdminPassword = "root@joyful.dev", "rootpass"
	})
	c := h.client()
	ctx := context.Background()

	login, err := c.Login(ctx, "root@joyful.dev", "rootpass")
	require.NoError(t, err)
	assert.True(t, login.User.IsAdmin)
	h.token = login.AccessToken

	for range 3 {
		used, err := c.UseTrial(ctx, model.TrialKindImage)
		require.NoError(t, err)
		assert.True(t, used.IsAdmin)
		assert.Equal(t, model.UnlimitedTrials, used.RemainingTrials)
	}
}

func TestGenerate(t *testing.T) {
	h := newHarness(t)
	h.register(t, "a@b.com")
	c := h.client()

	resp, err := c.Generate(context.Background(), model.NewGenerationRequest("a cat", model.RatioWide, 3))
	require.NoError(t, err)
	require.Len(t, resp.Images, 3)

	for _, img := range resp.Images {
		assert.True(t, strings.HasPrefix(img.Base64, "data:image/png;base64,"))
		data, mime, err := img.Decode()
		require.NoError(t, err)
		assert.Equal(t, "image/png", mime)
		assert.NotEmpty(t, data)
	}
	assert.NotEqual(t, resp.Images[0].Base64, resp.Images[1].Base64)

	resp, err = c.Generate(context.Background(), model.GenerationRequest{Prompt: "a dog", Ratio: "7:3", Count: 9})
	require.NoError(t, err)
	assert.Len(t, resp.Images, 1, "out of range counts fall back to one")

	_, err = c.Generate(context.Background(), model.GenerationRequest{Prompt: "  ", Ratio: "1:1", Count: 1})
	assert.EqualError(t, err, "Please provide a prompt")
}

func TestGenerateDisabled(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.GenerationEnabled = false })
	h.register(t, "a@b.com")
	c := h.client()

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.False(t, health.APIKeyConfigured)

	_, err = c.Generate(context.Background(), model.NewGenerationRequest("a cat", model.RatioSquare, 1))
	assert.EqualError(t, err, "API key not configured")
}

func TestPlaceholderDimensions(t *testing.T) {
	data, err := placeholder("x", model.RatioTall, 0)
	require.NoError(t, err)

	img, err := decodePNG(data)
	require.NoError(t, err)
	assert.Equal(t, 768/placeholderScale, img.Bounds().Dx())
	assert.Equal(t, 1344/placeholderScale, img.Bounds().Dy())

	_, _, err = parseSize("1024x1024")
	assert.Error(t, err)
}

func decodePNG(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

func TestRebind(t *testing.T) {
	q := `UPDATE t SET a = $1 WHERE b = $2 AND c = $12`
	assert.Equal(t, q, postgres.rebind(q))
	assert.Equal(t, `UPDATE t SET a = ?1 WHERE b = ?2 AND c = ?12`, sqlite.rebind(q))
}
