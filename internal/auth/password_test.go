package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong password"), ErrPasswordMismatch)
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	first, err := HashPassword("same input")
	require.NoError(t, err)
	second, err := HashPassword("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	require.NoError(t, VerifyPassword(first, "same input"))
	require.NoError(t, VerifyPassword(second, "same input"))
}

func TestHashPasswordFormat(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 5)
	assert.Equal(t, "pbkdf2", parts[0])
	assert.Equal(t, "sha256", parts[1])
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	cases := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "missing fields", hash: "pbkdf2$sha256$120000"},
		{name: "unknown scheme", hash: "bcrypt$sha256$120000$c2FsdA$a2V5"},
		{name: "bad iterations", hash: "pbkdf2$sha256$zero$c2FsdA$a2V5"},
		{name: "bad salt encoding", hash: "pbkdf2$sha256$120000$!!!$a2V5"},
		{name: "bad key encoding", hash: "pbkdf2$sha256$120000$c2FsdA$!!!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifyPassword(tc.hash, "whatever")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}

func TestVerifyPasswordEmptyCandidate(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.ErrorIs(t, VerifyPassword(hash, ""), ErrPasswordMismatch)
}
