package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken signs and verifies the shared web-client JWT used to guard the
// capture API when auth is enabled.
type AccessToken struct {
	secretKey []byte
	ttl       time.Duration
}

// NewAccessToken builds a token helper using the provided secret.
func NewAccessToken(secretKey string) *AccessToken {
	return &AccessToken{
		secretKey: []byte(secretKey),
		ttl:       24 * time.Hour,
	}
}

// WithTTL overrides the expiration duration as given; a negative value mints
// already-expired tokens. Callers validate operator input. Zero keeps the
// default.
func (at *AccessToken) WithTTL(ttl time.Duration) *AccessToken {
	if ttl != 0 {
		at.ttl = ttl
	}
	return at
}

// Generate issues a JWT for the provided client identifier.
func (at *AccessToken) Generate(clientID string) (string, error) {
	if at == nil {
		return "", errors.New("access token helper is nil")
	}
	if len(at.secretKey) == 0 {
		return "", errors.New("access token secret is empty")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"client_id": clientID,
		"exp":       now.Add(at.ttl).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the JWT and extracts the client identifier.
func (at *AccessToken) Verify(tokenString string) (bool, string, error) {
	if at == nil {
		return false, "", errors.New("access token helper is nil")
	}
	if len(at.secretKey) == 0 {
		return false, "", errors.New("access token secret is empty")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	})
	if err != nil {
		return false, "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return false, "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false, "", errors.New("unexpected claims type")
	}
	clientID, _ := claims["client_id"].(string)
	return true, clientID, nil
}
