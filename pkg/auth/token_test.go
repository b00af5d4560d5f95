package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmagedov/p2pdesk-backend/pkg/config"
	"github.com/rmagedov/p2pdesk-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "p2pdesk",
		ExpirationMinutes: 60,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	operatorID := uuid.New()
	now := time.Now()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		OperatorID: operatorID,
		Role:       enums.OperatorRoleAdmin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.OperatorID)
	assert.Equal(t, enums.OperatorRoleAdmin, claims.Role)
	assert.Equal(t, "p2pdesk", claims.Issuer)
	assert.Equal(t, operatorID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestMintAccessTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()

	_, err := MintAccessToken(cfg, now, AccessTokenPayload{Role: enums.OperatorRoleOperator})
	require.Error(t, err)

	_, err = MintAccessToken(cfg, now, AccessTokenPayload{OperatorID: uuid.New(), Role: "superuser"})
	require.Error(t, err)

	cfg.Secret = ""
	_, err = MintAccessToken(cfg, now, AccessTokenPayload{OperatorID: uuid.New(), Role: enums.OperatorRoleOperator})
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	issued := time.Now().Add(-2 * time.Hour)

	token, err := MintAccessToken(cfg, issued, AccessTokenPayload{
		OperatorID: uuid.New(),
		Role:       enums.OperatorRoleOperator,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		OperatorID: uuid.New(),
		Role:       enums.OperatorRoleOperator,
	})
	require.NoError(t, err)

	other := cfg
	other.Secret = "different-secret"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)
}
