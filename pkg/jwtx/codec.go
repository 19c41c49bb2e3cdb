package jwtx

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Supported HMAC signing algorithms.
const (
	AlgorithmHS256 = "HS256"
	AlgorithmHS384 = "HS384"
	AlgorithmHS512 = "HS512"
)

// CodecConfig configures a Codec.
type CodecConfig struct {
	// Secret signs every new token.
	Secret string

	// PreviousSecrets are still accepted for verification so a secret can be
	// rotated without logging everyone out.
	PreviousSecrets []string

	// Algorithm is one of HS256, HS384 or HS512.
	Algorithm string

	// Issuer is stamped into tokens and enforced on verify when non-empty.
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	Claims    Claims
	ExpiresAt time.Time
}

// Codec signs and verifies HMAC tokens with a shared secret.
type Codec struct {
	method     *jwt.SigningMethodHMAC
	kid        string
	keys       map[string][]byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}

	var method *jwt.SigningMethodHMAC
	switch cfg.Algorithm {
	case AlgorithmHS256:
		method = jwt.SigningMethodHS256
	case AlgorithmHS384:
		method = jwt.SigningMethodHS384
	case AlgorithmHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, cfg.Algorithm)
	}

	c := &Codec{
		method:     method,
		kid:        keyID(cfg.Secret),
		keys:       make(map[string][]byte, 1+len(cfg.PreviousSecrets)),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
	c.keys[c.kid] = []byte(cfg.Secret)
	for _, s := range cfg.PreviousSecrets {
		if s != "" {
			c.keys[keyID(s)] = []byte(s)
		}
	}

	if c.accessTTL <= 0 {
		c.accessTTL = DefaultAccessTokenTTL
	}
	if c.refreshTTL <= 0 {
		c.refreshTTL = DefaultRefreshTokenTTL
	}
	if c.now == nil {
		c.now = time.Now
	}

	return c, nil
}

func (c *Codec) Alg() string { return c.method.Alg() }
func (c *Codec) KID() string { return c.kid }

// TTL returns the configured lifetime for typ.
func (c *Codec) TTL(typ TokenType) time.Duration {
	if typ == TypeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue signs a new token of type typ for subject.
func (c *Codec) Issue(subject string, typ TokenType) (Issued, error) {
	if subject == "" {
		return Issued{}, errors.New("jwtx: subject must not be empty")
	}
	if !typ.Valid() {
		return Issued{}, fmt.Errorf("jwtx: unknown token type %q", typ)
	}

	claims := NewClaims(subject, typ, c.issuer, c.TTL(typ), c.now().UTC())

	t := jwt.NewWithClaims(c.method, claims)
	t.Header["kid"] = c.kid
	signed, err := t.SignedString(c.keys[c.kid])
	if err != nil {
		return Issued{}, fmt.Errorf("jwtx: sign: %w", err)
	}

	return Issued{
		Token:     signed,
		Claims:    claims,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks the signature and time window of token. Expired tokens
// return ErrExpired; anything structurally wrong returns ErrMalformed,
// ErrInvalidSig, ErrAlgMismatch or ErrUnknownKID.
func (c *Codec) Verify(token string) (Claims, error) {
	// Time claims are checked below against our own clock.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, ErrAlgMismatch
		}

		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			kid = c.kid
		}
		key, ok := c.keys[kid]
		if !ok {
			return nil, ErrUnknownKID
		}
		return key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlgMismatch):
			return Claims{}, ErrAlgMismatch
		case errors.Is(err, ErrUnknownKID):
			return Claims{}, ErrUnknownKID
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || !claims.Type.Valid() {
		return Claims{}, fmt.Errorf("%w: missing required claims", ErrMalformed)
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(c.now().UTC()); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// keyID derives a stable, non-secret identifier for a signing secret.
func keyID(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:6])
}
