package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SDKClient is a client for the Bookly identity API.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// RefreshBuffer is how long before access token expiry a Session
	// proactively rotates its tokens. Zero disables proactive refresh.
	RefreshBuffer time.Duration
}

// NewSDKClient creates a new client for the API served at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		RefreshBuffer: 30 * time.Second,
	}
}

// SignUp registers a new account. No tokens are issued; sign in afterwards.
func (c *SDKClient) SignUp(ctx context.Context, req SignUpRequest) (*Profile, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/sign-up", req, "")
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := decodeEnvelope(resp, &profile, http.StatusCreated); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SignIn authenticates and returns a Session. The session only carries a
// refresh token once the profile is set up.
func (c *SDKClient) SignIn(ctx context.Context, req SignInRequest) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/sign-in", req, "")
	if err != nil {
		return nil, err
	}

	var sr SessionResponse
	if err := decodeEnvelope(resp, &sr, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, sr), nil
}

// NewSessionFromTokens creates a session from tokens obtained elsewhere.
// refreshToken may be empty.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return newSession(c, SessionResponse{Token: TokenPair{Access: accessToken, Refresh: refreshToken}})
}

// Hello calls the greeting endpoint. An empty name uses the server default.
func (c *SDKClient) Hello(ctx context.Context, name string) (*HelloResponse, error) {
	path := "/hello"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	var hello HelloResponse
	if err := decodeJSON(resp, &hello, http.StatusOK); err != nil {
		return nil, err
	}
	return &hello, nil
}
