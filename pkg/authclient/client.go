// Package authclient talks to the auth service. Tokens are issued there; this side only asks for a refresh.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrRejected means the auth service refused the refresh token. The session is over.
	ErrRejected = errors.New("refresh rejected")
	// ErrUnavailable means the auth service could not answer. The session may still be valid.
	ErrUnavailable = errors.New("auth service unavailable")
)

const refreshPath = "/auth/refresh"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(authServiceURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(authServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessExp    int64  `json:"access_exp"`
	RefreshExp   int64  `json:"refresh_exp"`
	IsAdmin      bool   `json:"is_admin"`
}

// RefreshTokens exchanges the cookie pair for a new one. Errors wrap ErrRejected or ErrUnavailable.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken, accessToken string) (*RefreshResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refreshToken})
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: accessToken})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d%s", ErrRejected, resp.StatusCode, reason(resp.Body))
	default:
		return nil, fmt.Errorf("%w: status %d%s", ErrUnavailable, resp.StatusCode, reason(resp.Body))
	}

	var out RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode refresh response: %v", ErrUnavailable, err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrRejected)
	}
	return &out, nil
}

// reason pulls the auth service's {"message": ...} body, if any.
func reason(body io.Reader) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4<<10)).Decode(&msg); err != nil || msg.Message == "" {
		return ""
	}
	return ": " + msg.Message
}
