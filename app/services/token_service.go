package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mzare/copyforge/utils"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("service token has expired")
	ErrTokenInvalid = errors.New("invalid service token")
)

// TokenService validates the HS256 tokens internal callers present in the
// service token header. Copyforge never authenticates humans; the token only
// proves the request came from a registered internal service.
type TokenService interface {
	GenerateServiceToken(serviceName string) (string, error)
	ValidateServiceToken(token string) (*ServiceTokenClaims, error)
}

// ServiceTokenClaims represents the claims in a service JWT
type ServiceTokenClaims struct {
	ServiceName string    `json:"service_name"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenID     string    `json:"jti"`
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	secretKey []byte
	tokenTTL  time.Duration
	issuer    string
	audience  string
}

// NewTokenService creates a new token service
func NewTokenService(secretKey string, tokenTTL time.Duration, issuer, audience string) (TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &TokenServiceImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// GenerateServiceToken issues a short-lived token for an internal service
func (s *TokenServiceImpl) GenerateServiceToken(serviceName string) (string, error) {
	now := utils.UTCNow()

	claims := jwt.MapClaims{
		"service_name": serviceName,
		"iss":          s.issuer,
		"aud":          s.audience,
		"iat":          now.Unix(),
		"exp":          now.Add(s.tokenTTL).Unix(),
		"jti":          uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	return signed, nil
}

// ValidateServiceToken verifies the signature and standard claims
func (s *TokenServiceImpl) ValidateServiceToken(tokenString string) (*ServiceTokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	serviceName, _ := claims["service_name"].(string)
	if serviceName == "" {
		return nil, ErrTokenInvalid
	}

	result := &ServiceTokenClaims{ServiceName: serviceName}
	if jti, ok := claims["jti"].(string); ok {
		result.TokenID = jti
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		result.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		result.ExpiresAt = exp.Time
	}

	return result, nil
}
