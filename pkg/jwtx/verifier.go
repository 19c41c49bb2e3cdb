package jwtx

import (
	"errors"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Issuer mints signed tokens.
type Issuer interface {
	Issue(subject string, typ TokenType) (Issued, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrWrongType   = errors.New("jwtx: wrong token type")

	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")
	ErrEmptySecret    = errors.New("jwtx: signing secret must not be empty")
)

// IsExpired reports whether err came from an otherwise valid token that has
// run out of time. Callers use it to pick a log message; both outcomes reject.
func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired) || errors.Is(err, ErrNotYetValid)
}
