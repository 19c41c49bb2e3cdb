package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

// Messages returned by the gatekeeper.
const (
	MsgMissingToken    = "Authorization header with a Bearer token is required!"
	MsgInvalidToken    = "Token is invalid or expired!"
	MsgRevokedToken    = "Token has been revoked!"
	MsgAuthUnavailable = "Unable to validate session, please try again!"
)

// LiveTokenFunc reports whether raw is still the current token for subject.
type LiveTokenFunc func(ctx context.Context, subject, raw string) (bool, error)

// AuthnConfig parameterises AuthnMiddleware.
type AuthnConfig struct {
	Verifier jwtx.Verifier

	// Required is the token type the route accepts.
	Required jwtx.TokenType

	// Live is consulted for refresh tokens only. A nil Live accepts any
	// cryptographically valid refresh token.
	Live LiveTokenFunc
}

// AuthnMiddleware verifies the bearer token, enforces its type and, for
// refresh tokens, checks it is still the live one for its subject.
func AuthnMiddleware(cfg AuthnConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, http.StatusUnauthorized, MsgMissingToken)
				return
			}

			claims, err := cfg.Verifier.Verify(raw)
			if err != nil {
				if jwtx.IsExpired(err) {
					log.Info("bearer token expired", "required", cfg.Required)
				} else {
					log.Warn("bearer token rejected", "required", cfg.Required, "err", err)
				}
				writeBearerError(w, http.StatusUnauthorized, MsgInvalidToken)
				return
			}

			if err := claims.ValidateType(cfg.Required); err != nil {
				log.Warn("bearer token has wrong type",
					"required", cfg.Required, "got", claims.Type, "sub", claims.Subject)
				writeBearerError(w, http.StatusUnauthorized, WrongTypeMessage(cfg.Required))
				return
			}

			if cfg.Required == jwtx.TypeRefresh && cfg.Live != nil {
				live, err := cfg.Live(ctx, claims.Subject, raw)
				if err != nil {
					log.Error("refresh token liveness check failed", "sub", claims.Subject, "err", err)
					WriteFailure(w, http.StatusInternalServerError, MsgAuthUnavailable, nil)
					return
				}
				if !live {
					log.Warn("revoked refresh token presented", "sub", claims.Subject)
					writeBearerError(w, http.StatusUnauthorized, MsgRevokedToken)
					return
				}
			}

			ctx = slogx.With(ctx, "user_id", claims.Subject)
			ctx = contextWithAuth(ctx, claims, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WrongTypeMessage names the token type the caller should have sent.
func WrongTypeMessage(required jwtx.TokenType) string {
	return "Please, provide a valid " + string(required) + " token!"
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750-compliant challenge plus our JSON envelope.
func writeBearerError(w http.ResponseWriter, code int, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteFailure(w, code, desc, nil)
}
