package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoRefreshToken is returned when a session needs to refresh but was
// never issued a refresh token (the profile is not set up yet).
var ErrNoRefreshToken = errors.New("authsdk: no refresh token available")

// Session represents an authenticated session. When the client has a
// RefreshBuffer and the session holds a refresh token, calls rotate the
// tokens shortly before the access token expires.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time // zero when unknown
	user         Profile
}

// newSession creates a new authenticated session from a sign-in or refresh response.
func newSession(client *SDKClient, sr SessionResponse) *Session {
	s := &Session{client: client}
	s.apply(sr)
	return s
}

// apply stores a fresh token set. Callers must hold the write lock or own s.
func (s *Session) apply(sr SessionResponse) {
	s.accessToken = sr.Token.Access
	if sr.Token.Refresh != "" {
		s.refreshToken = sr.Token.Refresh
	}
	s.expiresAt = tokenExpiry(sr.Token.Access)
	if sr.User.ID != "" {
		s.user = sr.User
	}
}

// tokenExpiry reads exp without verifying the signature. The server is the
// authority; this only schedules the next refresh.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// needsRefresh reports whether the access token is within the refresh
// buffer of its expiry. Callers must hold at least the read lock.
func (s *Session) needsRefresh() bool {
	buf := s.client.RefreshBuffer
	if buf <= 0 || s.expiresAt.IsZero() || s.refreshToken == "" {
		return false
	}
	return !time.Now().Add(buf).Before(s.expiresAt)
}

// getValidToken returns the access token, rotating first when it is about to expire.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if !s.needsRefresh() {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if !s.needsRefresh() {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	return s.accessToken, nil
}

// Refresh rotates the token pair. The previous refresh token stops working.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return ErrNoRefreshToken
	}

	resp, err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/auth/refresh-token", nil, s.refreshToken)
	if err != nil {
		return err
	}

	var sr SessionResponse
	if err := decodeEnvelope(resp, &sr, http.StatusOK); err != nil {
		return err
	}
	s.apply(sr)
	return nil
}

// do performs an authenticated request and decodes the envelope data into target.
func (s *Session) do(ctx context.Context, method, path string, payload, target any) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.doRequest(ctx, method, path, payload, token)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, target, http.StatusOK)
}

// UserInfo fetches the current user's profile.
func (s *Session) UserInfo(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := s.do(ctx, http.MethodGet, "/api/v1/auth/user-info", nil, &p); err != nil {
		return nil, err
	}
	s.setUser(p)
	return &p, nil
}

// UpdateProfile replaces the editable profile fields. Completing the
// profile does not issue a refresh token; sign in again for that.
func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Profile, error) {
	var p Profile
	if err := s.do(ctx, http.MethodPatch, "/api/v1/auth/update-profile", req, &p); err != nil {
		return nil, err
	}
	s.setUser(p)
	return &p, nil
}

// ChangePassword swaps the password. The server may revoke the refresh
// token as a side effect, in which case the session is left with only its
// access token.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*Profile, error) {
	req := ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}

	var p Profile
	if err := s.do(ctx, http.MethodPatch, "/api/v1/auth/change-password", req, &p); err != nil {
		return nil, err
	}
	s.setUser(p)
	return &p, nil
}

// SignOut ends the session server side and forgets the local tokens.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.do(ctx, http.MethodGet, "/api/v1/auth/sign-out", nil, nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	return nil
}

func (s *Session) setUser(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = p
}

// User returns the last profile the server returned for this session.
func (s *Session) User() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, empty if none was issued.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}
