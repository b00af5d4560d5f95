package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmagedov/p2pdesk-backend/pkg/config"
)

func testPasswordConfig() config.PasswordConfig {
	// Low-cost parameters so the test suite stays fast.
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := testPasswordConfig()

	hash, err := HashPassword("correct horse battery staple", cfg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", testPasswordConfig())
	require.Error(t, err)
}

func TestHashesAreSalted(t *testing.T) {
	cfg := testPasswordConfig()

	first, err := HashPassword("same password", cfg)
	require.NoError(t, err)
	second, err := HashPassword("same password", cfg)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("whatever", "$bcrypt$not-argon")
	require.ErrorIs(t, err, ErrInvalidHash)

	_, err = VerifyPassword("whatever", "plaintext")
	require.ErrorIs(t, err, ErrInvalidHash)
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.Len(t, pw, 12)

	_, err = GenerateTempPassword(0)
	require.Error(t, err)
}
