package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, refreshPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		ck, err := r.Cookie("refreshToken")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch ck.Value {
		case "rt":
			_ = json.NewEncoder(w).Encode(RefreshResponse{AccessToken: "new-at", RefreshToken: "new-rt", AccessExp: 10, RefreshExp: 20})
		case "revoked":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"refresh token revoked"}`))
		case "empty":
			_ = json.NewEncoder(w).Encode(RefreshResponse{})
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefreshTokens(t *testing.T) {
	t.Parallel()

	c := NewClient(authServer(t).URL + "/")
	resp, err := c.RefreshTokens(context.Background(), "rt", "at")
	require.NoError(t, err)
	assert.Equal(t, "new-at", resp.AccessToken)
	assert.EqualValues(t, 20, resp.RefreshExp)
}

func TestRefreshTokens_Failures(t *testing.T) {
	t.Parallel()

	c := NewClient(authServer(t).URL)
	ctx := context.Background()

	_, err := c.RefreshTokens(ctx, "revoked", "at")
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "refresh token revoked")

	_, err = c.RefreshTokens(ctx, "empty", "at")
	assert.ErrorIs(t, err, ErrRejected)

	_, err = c.RefreshTokens(ctx, "other", "at")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "502")
}

func TestRefreshTokens_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithHTTPClient(&http.Client{})).RefreshTokens(context.Background(), "rt", "at")
	assert.ErrorIs(t, err, ErrUnavailable)
}
