package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gymdash/gymdash-api/models"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the identity carried by an access token
type Claims struct {
	Subject   string            // user email
	Roles     []models.RoleName // roles held when the token was issued
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Credentials hashes passwords and issues and decodes access tokens
type Credentials interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	IssueToken(claims Claims, ttl time.Duration) (string, error)
	DecodeToken(token string) (*Claims, error)
}

// TokenClaims is the JWT payload
type TokenClaims struct {
	Roles []models.RoleName `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTCredentials implements Credentials with bcrypt and HS256 tokens
type JWTCredentials struct {
	secret   []byte
	issuer   string
	audience string
	cost     int
	now      func() time.Time
}

// NewJWTCredentials creates credentials signing with secret
func NewJWTCredentials(secret, issuer, audience string) *JWTCredentials {
	return &JWTCredentials{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// WithHashCost overrides the bcrypt cost
func (c *JWTCredentials) WithHashCost(cost int) *JWTCredentials {
	c.cost = cost
	return c
}

// WithClock replaces the time source used for issuing and validating tokens
func (c *JWTCredentials) WithClock(now func() time.Time) *JWTCredentials {
	c.now = now
	return c
}

// Hash returns the bcrypt hash of plaintext
func (c *JWTCredentials) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash
func (c *JWTCredentials) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IssueToken signs claims valid for ttl
func (c *JWTCredentials) IssueToken(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("token subject is required")
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{
		Roles: claims.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// DecodeToken validates signature, issuer, audience and expiry
func (c *JWTCredentials) DecodeToken(token string) (*Claims, error) {
	parsed := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if parsed.Subject == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		Subject: parsed.Subject,
		Roles:   parsed.Roles,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}
