package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyronamart/groupbuy-backend/pkg/config"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "groupbuy-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	participantID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		ParticipantID: participantID,
		Role:          enums.ActorRoleParticipant,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, participantID, claims.ParticipantID)
	assert.Equal(t, enums.ActorRoleParticipant, claims.Role)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
}

func TestMintRejectsInvalidRole(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		ParticipantID: uuid.New(),
		Role:          enums.ActorRole("vendor"),
	})
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		ParticipantID: uuid.New(),
		Role:          enums.ActorRoleOperator,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		ParticipantID: uuid.New(),
		Role:          enums.ActorRoleParticipant,
	})
	require.NoError(t, err)

	other := cfg
	other.Secret = "different-secret"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)
}
