package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"128-bit token", TokenSize128},
		{"256-bit token", TokenSize256},
		{"custom size", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			token2, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, token2, "tokens should be unique")
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestRandomString(t *testing.T) {
	seen := make(map[string]bool, 100)
	for range 100 {
		s, err := RandomString(8, LowerAlphanumeric)
		require.NoError(t, err)
		require.Len(t, s, 8)

		for _, c := range s {
			require.True(t, strings.ContainsRune(LowerAlphanumeric, c), "unexpected character %q", c)
		}
		require.NotContains(t, seen, s, "duplicate string generated")
		seen[s] = true
	}
}

func TestRandomString_Invalid(t *testing.T) {
	_, err := RandomString(0, LowerAlphanumeric)
	require.Error(t, err)

	_, err = RandomString(4, "")
	require.Error(t, err)
}
