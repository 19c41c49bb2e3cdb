package http

import (
	"net/http"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/service"
	"github.com/aussiebroadwan/bookly/pkg/authsdk"
	"github.com/aussiebroadwan/bookly/pkg/httpx"
)

// Success messages.
const (
	MsgSignedUp        = "Signup successfully!"
	MsgSignedIn        = "Signin successfully!"
	MsgUserInfo        = "User info fetched successfully!"
	MsgRefreshed       = "Token refreshed successfully!"
	MsgSignedOut       = "Signout successfully!"
	MsgProfileUpdated  = "Profile updated successfully!"
	MsgPasswordChanged = "Password changed successfully!"
)

var errNoSubject = domain.Unauthorized(httpx.MsgMissingToken)

type AuthHandler struct {
	Service *service.IdentityService
}

// SignUp godoc
//
//	@Summary		Register a new account
//	@Description	Creates the account with a generated username. No tokens are issued.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignUpRequest	true	"Sign-up details"
//	@Success		201		{object}	authsdk.Envelope{data=authsdk.Profile}
//	@Failure		400		{object}	authsdk.Envelope	"Invalid request data"
//	@Failure		409		{object}	authsdk.Envelope	"Email already exists"
//	@Failure		500		{object}	authsdk.Envelope
//	@Router			/api/v1/auth/sign-up [post].
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateSignUp(&req); err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.Service.SignUp(r.Context(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, MsgSignedUp, toProfile(profile))
}

// SignIn godoc
//
//	@Summary		Sign in
//	@Description	Verifies the credentials and issues an access token. A refresh token is only issued once the profile is set up.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignInRequest	true	"Exactly one of email or username, plus password"
//	@Success		200		{object}	authsdk.Envelope{data=authsdk.SessionResponse}
//	@Failure		400		{object}	authsdk.Envelope
//	@Failure		401		{object}	authsdk.Envelope	"Invalid password"
//	@Failure		404		{object}	authsdk.Envelope	"User not found"
//	@Failure		429		{object}	authsdk.Envelope
//	@Router			/api/v1/auth/sign-in [post].
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateSignIn(&req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.Service.SignIn(r.Context(), service.SignInInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, MsgSignedIn, toSession(session))
}

// UserInfo godoc
//
//	@Summary		Current user
//	@Description	Returns the signed-in user's profile, served from the session cache when possible.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Envelope{data=authsdk.Profile}
//	@Failure		401	{object}	authsdk.Envelope
//	@Failure		404	{object}	authsdk.Envelope
//	@Failure		500	{object}	authsdk.Envelope
//	@Router			/api/v1/auth/user-info [get].
func (h *AuthHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errNoSubject)
		return
	}

	profile, err := h.Service.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, MsgUserInfo, toProfile(profile))
}

// Refresh godoc
//
//	@Summary		Rotate tokens
//	@Description	Exchanges the live refresh token (sent as the Bearer token) for a new access and refresh token. The presented token is revoked.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Envelope{data=authsdk.SessionResponse}
//	@Failure		401	{object}	authsdk.Envelope	"Invalid, expired, revoked or wrong type of token"
//	@Failure		500	{object}	authsdk.Envelope
//	@Router			/api/v1/auth/refresh-token [get].
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := httpx.RawTokenFromContext(r.Context())
	if !ok {
		writeError(w, r, errNoSubject)
		return
	}

	session, err := h.Service.Refresh(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, MsgRefreshed, toSession(session))
}

// SignOut godoc
//
//	@Summary		Sign out
//	@Description	Revokes the refresh token and drops the cached profile. Access tokens stay valid until they expire.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Envelope
//	@Failure		401	{object}	authsdk.Envelope
//	@Failure		500	{object}	authsdk.Envelope
//	@Router			/api/v1/auth/sign-out [get].
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errNoSubject)
		return
	}

	if err := h.Service.SignOut(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, MsgSignedOut, nil)
}

// UpdateProfile godoc
//
//	@Summary		Update profile
//	@Description	Replaces name, username, gender and optionally bio. The profile counts as set up once name, email, username and gender are all present.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.UpdateProfileRequest	true	"Profile fields"
//	@Success		200		{object}	authsdk.Envelope{data=authsdk.Profile}
//	@Failure		400		{object}	authsdk.Envelope
//	@Failure		401		{object}	authsdk.Envelope
//	@Failure		409		{object}	authsdk.Envelope	"Username already exists"
//	@Failure		500		{object}	authsdk.Envelope
//	@Router			/api/v1/auth/update-profile [patch].
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errNoSubject)
		return
	}

	var req authsdk.UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateUpdateProfile(&req); err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.Service.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		Name:     req.Name,
		Username: req.Username,
		Gender:   req.Gender,
		Bio:      req.Bio,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, MsgProfileUpdated, toProfile(profile))
}

// ChangePassword godoc
//
//	@Summary		Change password
//	@Description	Re-verifies the old password and stores the new one. The live refresh token is revoked unless the service is configured otherwise.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"Old and new password"
//	@Success		200		{object}	authsdk.Envelope{data=authsdk.Profile}
//	@Failure		400		{object}	authsdk.Envelope	"Validation failed or new password equals old"
//	@Failure		401		{object}	authsdk.Envelope	"Old password is incorrect"
//	@Failure		500		{object}	authsdk.Envelope
//	@Router			/api/v1/auth/change-password [patch].
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, errNoSubject)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateChangePassword(&req); err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.Service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, MsgPasswordChanged, toProfile(profile))
}

func toProfile(p domain.Profile) authsdk.Profile {
	return authsdk.Profile{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Username:  p.Username,
		Gender:    string(p.Gender),
		Image:     p.Image,
		Bio:       p.Bio,
		Setup:     p.Setup,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toSession(s service.Session) authsdk.SessionResponse {
	return authsdk.SessionResponse{
		User: toProfile(s.User),
		Token: authsdk.TokenPair{
			Access:  s.Token.Access,
			Refresh: s.Token.Refresh,
		},
	}
}
