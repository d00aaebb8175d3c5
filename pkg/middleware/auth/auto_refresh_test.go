package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/returns/pkg/authclient"
	"github.com/Skotchmaster/returns/pkg/tokens"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-jwt-secret")

type fakeRefresher struct {
	resp  *authclient.RefreshResponse
	err   error
	calls int
}

func (f *fakeRefresher) RefreshTokens(_ context.Context, _, _ string) (*authclient.RefreshResponse, error) {
	f.calls++
	return f.resp, f.err
}

func sign(t *testing.T, userID, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.SignAccess(secret, userID, role, exp)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })(c)
	return rec, c, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuth_Bearer(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sign(t, userID, "user", time.Now().Add(time.Minute)))

	m := NewAutoRefreshMiddleware(secret, nil)
	rec, c, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, c.Get(CtxUserID))
}

func TestRequireAuth_MissingToken(t *testing.T) {
	t.Parallel()

	m := NewAutoRefreshMiddleware(secret, nil)
	_, _, err := run(t, m.RequireAuth, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAdmin_ForbiddenForUser(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: sign(t, uuid.NewString(), "user", time.Now().Add(time.Minute))})

	m := NewAutoRefreshMiddleware(secret, nil)
	_, _, err := run(t, m.RequireAdmin, req)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestRequireAuth_RefreshesExpiredCookie(t *testing.T) {
	t.Parallel()

	userID := uuid.NewString()
	fresh := sign(t, userID, "user", time.Now().Add(time.Hour))
	ref := &fakeRefresher{resp: &authclient.RefreshResponse{
		AccessToken:  fresh,
		RefreshToken: "new-refresh",
		AccessExp:    time.Now().Add(time.Hour).Unix(),
		RefreshExp:   time.Now().Add(24 * time.Hour).Unix(),
	}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: sign(t, userID, "user", time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})

	m := NewAutoRefreshMiddleware(secret, ref)
	rec, c, err := run(t, m.RequireAuth, req)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.calls)
	assert.Equal(t, userID, c.Get(CtxUserID))
	assert.Contains(t, rec.Header().Values("Set-Cookie")[0], "accessToken="+fresh)
}

func TestRequireAuth_RefreshFailureClearsCookies(t *testing.T) {
	t.Parallel()

	ref := &fakeRefresher{err: fmt.Errorf("%w: status 401", authclient.ErrRejected)}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: sign(t, uuid.NewString(), "user", time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})

	m := NewAutoRefreshMiddleware(secret, ref)
	rec, _, err := run(t, m.RequireAuth, req)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Len(t, rec.Header().Values("Set-Cookie"), 2)
}

func TestRequireAuth_AuthServiceDownKeepsCookies(t *testing.T) {
	t.Parallel()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: sign(t, uuid.NewString(), "user", time.Now().Add(-time.Minute))})
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "old-refresh"})

	m := NewAutoRefreshMiddleware(secret, authclient.NewClient(down.URL))
	rec, _, err := run(t, m.RequireAuth, req)
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}
