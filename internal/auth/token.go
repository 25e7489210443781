// Package auth implements admin session tokens: HS256 JWTs carried in
// the auth-token cookie, plus credential validation against the single
// configured admin account.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "auth-token"

// Claims is the session token payload.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session tokens.
type Manager struct {
	secret        []byte
	adminUsername string
	adminPassword string
	ttl           time.Duration
}

// NewManager creates a token manager. adminPassword may be plaintext or
// a bcrypt hash (recognized by the "$2" prefix).
func NewManager(secret, adminUsername, adminPassword string, ttl time.Duration) *Manager {
	return &Manager{
		secret:        []byte(secret),
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		ttl:           ttl,
	}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// CreateToken signs a session token for the given username.
func (m *Manager) CreateToken(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a session token, returning the
// authenticated username.
func (m *Manager) VerifyToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Username, nil
}

// ValidateCredentials checks a login attempt against the configured
// admin account. Password comparison is constant-time for plaintext and
// bcrypt for hashed values.
func (m *Manager) ValidateCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.adminUsername)) == 1

	var passOK bool
	if strings.HasPrefix(m.adminPassword, "$2") {
		passOK = bcrypt.CompareHashAndPassword([]byte(m.adminPassword), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(m.adminPassword)) == 1
	}

	return userOK && passOK
}
