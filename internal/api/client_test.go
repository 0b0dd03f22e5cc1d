package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/existflow/joyful/internal/apperr"
	"github.com/existflow/joyful/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method        string
	Path          string
	ContentType   string
	Authorization string
	Body          map[string]any
}

func newTestServer(t *testing.T, status int, reply any) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			ContentType:   r.Header.Get("Content-Type"),
			Authorization: r.Header.Get("Authorization"),
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
		calls = append(calls, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func staticToken(tok string) TokenSource {
	return TokenFunc(func(ctx context.Context) (string, error) { return tok, nil })
}

func TestRequest_SetsHeadersAndBearer(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, map[string]any{"success": true})
	c := NewClient(srv.URL+"/api/", staticToken("tok-123"))

	var out Envelope
	require.NoError(t, c.Request(context.Background(), http.MethodPost, "/user/use-trial", UseTrialRequest{DemoType: "image_generation"}, &out))

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, "/api/user/use-trial", got.Path)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, "Bearer tok-123", got.Authorization)
	assert.Equal(t, "image_generation", got.Body["demo_type"])
	assert.True(t, out.Success)
}

func TestRequest_OmitsAuthorizationWithoutToken(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, map[string]any{"status": "healthy"})

	for name, c := range map[string]*Client{
		"nil source":  NewClient(srv.URL, nil),
		"empty token": NewClient(srv.URL, staticToken("")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Health(context.Background())
			require.NoError(t, err)
			assert.Empty(t, (*calls)[len(*calls)-1].Authorization)
			assert.Equal(t, "application/json", (*calls)[len(*calls)-1].ContentType)
		})
	}
}

func TestRequest_NonSuccessUsesServerMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
	c := NewClient(srv.URL, nil)

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	var re *apperr.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.Status)
	assert.Equal(t, "Invalid email or password", re.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestRequest_NonSuccessFallsBackToErrorField(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, map[string]any{"success": false, "error": "prompt required"})
	c := NewClient(srv.URL, nil)

	_, err := c.Generate(context.Background(), model.NewGenerationRequest("", "", 1))
	assert.EqualError(t, err, "prompt required")
}

func TestRequest_NonSuccessGenericFallback(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, map[string]any{"success": false})
	c := NewClient(srv.URL, nil)

	_, err := c.CheckTrial(context.Background())
	assert.EqualError(t, err, apperr.MsgRequestFailed)
	assert.Equal(t, apperr.KindRequest, apperr.KindOf(err))
}

func TestRequest_TransportFailureIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil)
	_, err := c.Health(context.Background())

	var ce *apperr.ConnectivityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, PathHealth, ce.Endpoint)
	assert.False(t, errors.As(err, new(*apperr.RequestError)))
}

func TestRequest_TokenSourceError(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, map[string]any{})
	c := NewClient(srv.URL, TokenFunc(func(ctx context.Context) (string, error) {
		return "", errors.New("storage closed")
	}))

	_, err := c.UserInfo(context.Background())
	assert.ErrorContains(t, err, "storage closed")
	assert.Empty(t, *calls)
}

func TestEndpoints_DecodeShapes(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, map[string]any{
		"success":          true,
		"access_token":     "jwt",
		"user":             map[string]any{"id": 7, "email": "a@b.com", "is_admin": false, "trial_count": 5},
		"remaining_trials": 2,
		"has_trials":       true,
		"images":           []map[string]any{{"base64": "data:image/png;base64,AAAA"}},
	})
	c := NewClient(srv.URL, nil)
	ctx := context.Background()

	auth, err := c.Register(ctx, "a@b.com", "secret1", "123456")
	require.NoError(t, err)
	assert.Equal(t, "jwt", auth.AccessToken)
	assert.Equal(t, "a@b.com", auth.User.Email)
	assert.Equal(t, "123456", (*calls)[0].Body["verification_code"])

	trial, err := c.UseTrial(ctx, model.TrialKindImage)
	require.NoError(t, err)
	assert.Equal(t, 2, trial.RemainingTrials)

	gen, err := c.Generate(ctx, model.NewGenerationRequest("a cat", model.RatioSquare, 1))
	require.NoError(t, err)
	require.Len(t, gen.Images, 1)
	assert.Equal(t, "a cat", (*calls)[2].Body["prompt"])
	assert.Equal(t, "1:1", (*calls)[2].Body["ratio"])
	assert.EqualValues(t, 1, (*calls)[2].Body["count"])
}
