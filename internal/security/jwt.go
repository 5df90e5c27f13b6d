package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "groqchat"

// SessionTokenManager signs the browser cookie that identifies a chat client.
// The token subject is an opaque client key; the conversation itself stays
// on the server.
type SessionTokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenManager creates a token manager signing with HS256
func NewSessionTokenManager(secret string, ttl time.Duration) *SessionTokenManager {
	return &SessionTokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewClientKey returns a fresh random client key
func NewClientKey() string {
	return uuid.NewString()
}

// Issue signs a token for clientKey
func (m *SessionTokenManager) Issue(clientKey string) (string, error) {
	if clientKey == "" {
		return "", errors.New("client key is required")
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   clientKey,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks the token and returns the client key it carries
func (m *SessionTokenManager) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid client key in token: %w", err)
	}

	return claims.Subject, nil
}

// TTL returns the token lifetime
func (m *SessionTokenManager) TTL() time.Duration {
	return m.ttl
}
