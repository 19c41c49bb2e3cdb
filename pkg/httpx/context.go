package httpx

import (
	"context"

	"github.com/aussiebroadwan/bookly/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID   ctxKey = "user_id"
	CtxKeyClaims   ctxKey = "claims"
	CtxKeyRawToken ctxKey = "raw_token"
)

func contextWithAuth(ctx context.Context, c jwtx.Claims, raw string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	ctx = context.WithValue(ctx, CtxKeyRawToken, raw)
	return ctx
}

// UserIDFromContext returns the verified subject placed by AuthnMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxKeyUserID).(string)
	return id, ok && id != ""
}

// ClaimsFromContext returns the verified claims placed by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// RawTokenFromContext returns the bearer token exactly as presented.
func RawTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(CtxKeyRawToken).(string)
	return t, ok && t != ""
}
