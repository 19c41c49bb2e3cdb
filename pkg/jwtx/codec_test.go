package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func newCodec(t *testing.T, mutate ...func(*jwtx.CodecConfig)) *jwtx.Codec {
	t.Helper()
	cfg := jwtx.CodecConfig{
		Secret:    testSecret,
		Algorithm: jwtx.AlgorithmHS256,
		Issuer:    "bookly",
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := jwtx.NewCodec(cfg)
	require.NoError(t, err)
	return c
}

func TestNewCodec_Validation(t *testing.T) {
	_, err := jwtx.NewCodec(jwtx.CodecConfig{Algorithm: jwtx.AlgorithmHS256})
	require.ErrorIs(t, err, jwtx.ErrEmptySecret)

	_, err = jwtx.NewCodec(jwtx.CodecConfig{Secret: "x", Algorithm: "RS256"})
	require.ErrorIs(t, err, jwtx.ErrUnsupportedAlg)

	c, err := jwtx.NewCodec(jwtx.CodecConfig{Secret: "x", Algorithm: jwtx.AlgorithmHS512})
	require.NoError(t, err)
	require.Equal(t, "HS512", c.Alg())
	require.Equal(t, jwtx.DefaultAccessTokenTTL, c.TTL(jwtx.TypeAccess))
	require.Equal(t, jwtx.DefaultRefreshTokenTTL, c.TTL(jwtx.TypeRefresh))
}

func TestIssueAndVerify(t *testing.T) {
	for _, alg := range []string{jwtx.AlgorithmHS256, jwtx.AlgorithmHS384, jwtx.AlgorithmHS512} {
		for _, typ := range []jwtx.TokenType{jwtx.TypeAccess, jwtx.TypeRefresh} {
			t.Run(alg+"/"+string(typ), func(t *testing.T) {
				c := newCodec(t, func(cfg *jwtx.CodecConfig) { cfg.Algorithm = alg })

				issued, err := c.Issue("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", typ)
				require.NoError(t, err)
				require.NotEmpty(t, issued.Token)

				claims, err := c.Verify(issued.Token)
				require.NoError(t, err)
				require.Equal(t, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", claims.Subject)
				require.Equal(t, typ, claims.Type)
				require.Equal(t, "bookly", claims.Issuer)
				require.WithinDuration(t, time.Now().Add(c.TTL(typ)), claims.ExpiresAt.Time, 2*time.Second)
			})
		}
	}
}

func TestIssue_Rejects(t *testing.T) {
	c := newCodec(t)

	_, err := c.Issue("", jwtx.TypeAccess)
	require.Error(t, err)

	_, err = c.Issue("user-1", "session")
	require.Error(t, err)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	c := newCodec(t)

	a, err := c.Issue("user-1", jwtx.TypeRefresh)
	require.NoError(t, err)
	b, err := c.Issue("user-1", jwtx.TypeRefresh)
	require.NoError(t, err)

	require.NotEqual(t, a.Token, b.Token)
}

func TestVerify_Expired(t *testing.T) {
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issuer := newCodec(t, func(cfg *jwtx.CodecConfig) {
		cfg.Now = past
		cfg.AccessTTL = time.Hour
	})
	verifier := newCodec(t)

	issued, err := issuer.Issue("user-1", jwtx.TypeAccess)
	require.NoError(t, err)

	_, err = verifier.Verify(issued.Token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
	require.True(t, jwtx.IsExpired(err))
}

func TestVerify_Invalid(t *testing.T) {
	c := newCodec(t)
	issued, err := c.Issue("user-1", jwtx.TypeAccess)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := c.Verify("not-a-token")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
		require.False(t, jwtx.IsExpired(err))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := c.Verify("")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("tampered signature", func(t *testing.T) {
		parts := strings.Split(issued.Token, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		_, err := c.Verify(parts[0] + "." + parts[1] + "." + string(sig))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("different secret", func(t *testing.T) {
		other := newCodec(t, func(cfg *jwtx.CodecConfig) { cfg.Secret = "another-secret" })
		_, err := other.Verify(issued.Token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("different algorithm", func(t *testing.T) {
		other := newCodec(t, func(cfg *jwtx.CodecConfig) { cfg.Algorithm = jwtx.AlgorithmHS512 })
		_, err := other.Verify(issued.Token)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", jwtx.TypeAccess, "bookly", time.Hour, time.Now())
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = c.Verify(unsigned)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := newCodec(t, func(cfg *jwtx.CodecConfig) { cfg.Issuer = "elsewhere" })
		_, err := other.Verify(issued.Token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("missing type", func(t *testing.T) {
		claims := jwtx.NewClaims("user-1", "", "bookly", time.Hour, time.Now())
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tok.Header["kid"] = c.KID()
		raw, err := tok.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = c.Verify(raw)
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestVerify_PreviousSecrets(t *testing.T) {
	old := newCodec(t, func(cfg *jwtx.CodecConfig) { cfg.Secret = "old-secret" })
	issued, err := old.Issue("user-1", jwtx.TypeRefresh)
	require.NoError(t, err)

	rotated := newCodec(t, func(cfg *jwtx.CodecConfig) {
		cfg.Secret = "new-secret"
		cfg.PreviousSecrets = []string{"old-secret"}
	})

	claims, err := rotated.Verify(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)

	// New tokens are signed with the current secret only.
	fresh, err := rotated.Issue("user-1", jwtx.TypeAccess)
	require.NoError(t, err)
	_, err = old.Verify(fresh.Token)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}
