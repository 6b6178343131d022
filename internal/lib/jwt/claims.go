// Package jwt issues and verifies the bearer tokens handed out at login.
//
// The token subject is the principal's email; Role travels as a custom
// claim so role gates can run without a database lookup.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims are the claims embedded in every issued token.
type CustomClaims struct {
	Role                 string `json:"role"`
	jwt.RegisteredClaims        // Subject carries the principal email
}

// Maker issues and parses bearer tokens.
type Maker interface {
	GenerateToken(email, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl signs tokens with a fixed HS256 secret and TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker builds a MakerImpl from the secret key and token lifetime.
func NewMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
