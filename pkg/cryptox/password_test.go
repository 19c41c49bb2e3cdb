package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Cheap parameters keep the suite fast; production cost is covered by the
// defaults test below.
func newTestHasher(t *testing.T, scheme Scheme, pepper string) *Hasher {
	t.Helper()
	h, err := NewHasher(HasherConfig{
		Scheme:      scheme,
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		BcryptCost:  bcrypt.MinCost,
		Pepper:      pepper,
	})
	require.NoError(t, err)
	return h
}

func TestNewHasher_Defaults(t *testing.T) {
	h, err := NewHasher(HasherConfig{})
	require.NoError(t, err)
	require.Equal(t, SchemeArgon2id, h.Scheme())

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	require.Contains(t, hash, "m=19456", "memory parameter should be 19456 (19*1024)")
	require.Contains(t, hash, "t=2")
	require.Contains(t, hash, "p=1")
}

func TestNewHasher_Invalid(t *testing.T) {
	_, err := NewHasher(HasherConfig{Scheme: "md5"})
	require.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = NewHasher(HasherConfig{Scheme: SchemeBcrypt, BcryptCost: 99})
	require.Error(t, err)
}

func TestHash_PHCFormat(t *testing.T) {
	h := newTestHasher(t, SchemeArgon2id, "")

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6, "PHC hash should have 6 parts")
			require.Equal(t, "argon2id", parts[1])
			require.Equal(t, "v=19", parts[2])
			require.NotEmpty(t, parts[4], "salt should not be empty")
			require.NotEmpty(t, parts[5], "hash should not be empty")

			require.True(t, h.Verify(tt.password, hash))
		})
	}
}

func TestHash_UniqueSalts(t *testing.T) {
	for _, scheme := range []Scheme{SchemeArgon2id, SchemeBcrypt} {
		t.Run(string(scheme), func(t *testing.T) {
			h := newTestHasher(t, scheme, "")

			hash1, err := h.Hash("samepassword")
			require.NoError(t, err)
			hash2, err := h.Hash("samepassword")
			require.NoError(t, err)

			require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
			require.True(t, h.Verify("samepassword", hash1))
			require.True(t, h.Verify("samepassword", hash2))
		})
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	for _, scheme := range []Scheme{SchemeArgon2id, SchemeBcrypt} {
		h := newTestHasher(t, scheme, "pepper")
		hash, err := h.Hash("correct-password")
		require.NoError(t, err)

		for _, wrong := range []string{"wrong-password", "Correct-Password", "correct-password ", ""} {
			t.Run(string(scheme)+"/"+wrong, func(t *testing.T) {
				require.False(t, h.Verify(wrong, hash))
			})
		}
	}
}

func TestVerify_MalformedDigest(t *testing.T) {
	h := newTestHasher(t, SchemeArgon2id, "")

	tests := []struct {
		name   string
		digest string
	}{
		{"empty hash", ""},
		{"plaintext", "secret1"},
		{"unknown scheme", "$scrypt$ln=15,r=8,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"zero parameters", "$argon2id$v=19$m=0,t=0,p=0$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid base64 hash", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong version", "$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{"truncated bcrypt", "$2a$04$short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.False(t, h.Verify("secret1", tt.digest))
			})
		})
	}
}

func TestVerify_CrossScheme(t *testing.T) {
	argon := newTestHasher(t, SchemeArgon2id, "pepper")
	bc := newTestHasher(t, SchemeBcrypt, "pepper")

	argonHash, err := argon.Hash("secret1")
	require.NoError(t, err)
	bcryptHash, err := bc.Hash("secret1")
	require.NoError(t, err)

	// Digests carry their scheme, so either hasher can verify both.
	require.True(t, bc.Verify("secret1", argonHash))
	require.True(t, argon.Verify("secret1", bcryptHash))

	require.True(t, bc.NeedsRehash(argonHash))
	require.False(t, bc.NeedsRehash(bcryptHash))
	require.True(t, argon.NeedsRehash(bcryptHash))
	require.False(t, argon.NeedsRehash(argonHash))
}

func TestVerify_PepperMismatch(t *testing.T) {
	for _, scheme := range []Scheme{SchemeArgon2id, SchemeBcrypt} {
		t.Run(string(scheme), func(t *testing.T) {
			a := newTestHasher(t, scheme, "pepper-a")
			b := newTestHasher(t, scheme, "pepper-b")

			hash, err := a.Hash("secret1")
			require.NoError(t, err)
			require.False(t, b.Verify("secret1", hash))
		})
	}
}

func TestBcrypt_LongPepperedPassword(t *testing.T) {
	h := newTestHasher(t, SchemeBcrypt, strings.Repeat("p", 43))

	// Would exceed bcrypt's 72 byte limit without the pre-hash.
	password := strings.Repeat("x", 60)
	hash, err := h.Hash(password)
	require.NoError(t, err)
	require.True(t, h.Verify(password, hash))
	require.False(t, h.Verify(password[:59], hash))
}

func TestLoadOrCreatePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "pepper should be stable once written")

	none, err := LoadOrCreatePepper("")
	require.NoError(t, err)
	require.Empty(t, none)
}
