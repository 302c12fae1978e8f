package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServiceSecret = "test-secret-key-for-jwt-signing-32-chars"

func createTestTokenService(t *testing.T) TokenService {
	t.Helper()
	service, err := NewTokenService(testServiceSecret, 15*time.Minute, "copyforge", "internal-services")
	require.NoError(t, err)
	return service
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		secretKey   string
		tokenTTL    time.Duration
		expectError bool
	}{
		{
			name:      "valid configuration",
			secretKey: testServiceSecret,
			tokenTTL:  time.Hour,
		},
		{
			name:        "missing secret key",
			secretKey:   "",
			tokenTTL:    time.Hour,
			expectError: true,
		},
		{
			name:      "non-positive ttl falls back to default",
			secretKey: testServiceSecret,
			tokenTTL:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(tt.secretKey, tt.tokenTTL, "copyforge", "internal-services")
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateAndValidateServiceToken(t *testing.T) {
	service := createTestTokenService(t)

	token, err := service.GenerateServiceToken("campaign-service")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateServiceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "campaign-service", claims.ServiceName)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestValidateServiceTokenRejectsGarbage(t *testing.T) {
	service := createTestTokenService(t)

	claims, err := service.ValidateServiceToken("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Nil(t, claims)
}

func TestValidateServiceTokenRejectsWrongKey(t *testing.T) {
	service := createTestTokenService(t)
	other, err := NewTokenService("another-secret-key-with-enough-chars!!", 15*time.Minute, "copyforge", "internal-services")
	require.NoError(t, err)

	token, err := other.GenerateServiceToken("campaign-service")
	require.NoError(t, err)

	claims, err := service.ValidateServiceToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Nil(t, claims)
}

func TestValidateServiceTokenRejectsExpired(t *testing.T) {
	service := createTestTokenService(t)

	// NewTokenService replaces non-positive TTLs with the default, so build
	// an already-expired issuer directly.
	expired := &TokenServiceImpl{
		secretKey: []byte(testServiceSecret),
		tokenTTL:  -time.Hour,
		issuer:    "copyforge",
		audience:  "internal-services",
	}

	token, err := expired.GenerateServiceToken("campaign-service")
	require.NoError(t, err)

	_, err = service.ValidateServiceToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateServiceTokenRejectsWrongIssuer(t *testing.T) {
	service := createTestTokenService(t)
	other, err := NewTokenService(testServiceSecret, 15*time.Minute, "someone-else", "internal-services")
	require.NoError(t, err)

	token, err := other.GenerateServiceToken("campaign-service")
	require.NoError(t, err)

	claims, err := service.ValidateServiceToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.Nil(t, claims)
}
