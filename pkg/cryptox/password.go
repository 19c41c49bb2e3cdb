package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Scheme names a supported password hashing algorithm.
type Scheme string

const (
	SchemeArgon2id Scheme = "argon2id"
	SchemeBcrypt   Scheme = "bcrypt"
)

// Default Argon2id parameters (OWASP minimums).
const (
	DefaultMemory      = 19 * 1024 // KiB
	DefaultIterations  = 2
	DefaultParallelism = 1
	keyLength          = 32
	saltLength         = 16
)

var ErrUnsupportedScheme = errors.New("cryptox: unsupported password scheme")

// HasherConfig tunes the cost of password hashing. Zero values fall back to
// the package defaults.
type HasherConfig struct {
	Scheme Scheme

	// Argon2id
	Memory      uint32
	Iterations  uint32
	Parallelism uint8

	// bcrypt
	BcryptCost int

	// Pepper is mixed into every password before hashing. Changing it
	// invalidates every stored digest.
	Pepper string
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	scheme      Scheme
	memory      uint32
	iterations  uint32
	parallelism uint8
	bcryptCost  int
	pepper      string
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	h := &Hasher{
		scheme:      cfg.Scheme,
		memory:      cfg.Memory,
		iterations:  cfg.Iterations,
		parallelism: cfg.Parallelism,
		bcryptCost:  cfg.BcryptCost,
		pepper:      cfg.Pepper,
	}

	if h.scheme == "" {
		h.scheme = SchemeArgon2id
	}
	if h.memory == 0 {
		h.memory = DefaultMemory
	}
	if h.iterations == 0 {
		h.iterations = DefaultIterations
	}
	if h.parallelism == 0 {
		h.parallelism = DefaultParallelism
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = bcrypt.DefaultCost
	}

	switch h.scheme {
	case SchemeArgon2id:
	case SchemeBcrypt:
		if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("cryptox: bcrypt cost %d out of range [%d, %d]",
				h.bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, cfg.Scheme)
	}

	return h, nil
}

// Scheme reports the scheme new digests are produced with.
func (h *Hasher) Scheme() Scheme { return h.scheme }

// Hash produces a salted digest of password. Two calls with the same input
// never return the same digest.
func (h *Hasher) Hash(password string) (string, error) {
	if h.scheme == SchemeBcrypt {
		digest, err := bcrypt.GenerateFromPassword(h.bcryptInput(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("cryptox: bcrypt: %w", err)
		}
		return string(digest), nil
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		h.iterations,
		h.memory,
		h.parallelism,
		keyLength,
	)

	// PHC string format
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.iterations,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches digest. The scheme is taken from
// the digest itself, so digests written under a previous configuration keep
// verifying. Malformed digests never match.
func (h *Hasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return h.verifyArgon2id(password, digest) == nil
	case strings.HasPrefix(digest, "$2a$"),
		strings.HasPrefix(digest, "$2b$"),
		strings.HasPrefix(digest, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(digest), h.bcryptInput(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether digest was produced under different settings
// than the ones this Hasher would use today.
func (h *Hasher) NeedsRehash(digest string) bool {
	switch h.scheme {
	case SchemeBcrypt:
		cost, err := bcrypt.Cost([]byte(digest))
		return err != nil || cost != h.bcryptCost
	default:
		want := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$",
			argon2.Version, h.memory, h.iterations, h.parallelism)
		return !strings.HasPrefix(digest, want)
	}
}

// bcrypt truncates at 72 bytes, so a peppered password is pre-hashed into a
// fixed-size input.
func (h *Hasher) bcryptInput(password string) []byte {
	if h.pepper == "" {
		return []byte(password)
	}
	mac := hmac.New(sha256.New, []byte(h.pepper))
	mac.Write([]byte(password))
	return []byte(base64.RawStdEncoding.EncodeToString(mac.Sum(nil)))
}

func (h *Hasher) verifyArgon2id(password, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return errors.New("invalid hash format: expected 6 parts")
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return errors.New("invalid hash format: wrong version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}
	if mem == 0 || iters == 0 || par == 0 {
		return errors.New("invalid hash format: zero parameter")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expectedHash) == 0 {
		return errors.New("invalid hash format: failed to decode hash")
	}

	computed := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expectedHash)), // #nosec G115 - bounded by the decoded digest
	)

	if subtle.ConstantTimeCompare(computed, expectedHash) == 1 {
		return nil
	}
	return errors.New("password does not match")
}
