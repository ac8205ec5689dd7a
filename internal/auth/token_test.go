package auth

import (
	"testing"
	"time"

	"mentorhub_backend/internal/config"
	"mentorhub_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret"
	cfg.JWT.AccessTTL = 5
	config.AppConfig = cfg
}

func TestGenerateAndParseToken(t *testing.T) {
	setTestConfig(t)

	identity := &models.Identity{
		ID:          "7b0d3a52-70a1-4a5a-9f6e-1a2b3c4d5e6f",
		DisplayName: "Aibek",
		Role:        models.RoleStudent,
		Tag:         models.TagStudent,
	}

	tokenStr, err := GenerateToken(identity)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, claims.IdentityID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, models.TagStudent, claims.IdentityTag)
}

func TestParseToken_Invalid(t *testing.T) {
	setTestConfig(t)

	_, err := ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_WrongSecret(t *testing.T) {
	setTestConfig(t)

	claims := &Claims{
		IdentityID:  "id-1",
		Role:        models.RoleAdvisor,
		IdentityTag: models.TagAccount,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	_, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseToken_Expired(t *testing.T) {
	setTestConfig(t)

	claims := &Claims{
		IdentityID:  "id-1",
		Role:        models.RoleStudent,
		IdentityTag: models.TagStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
