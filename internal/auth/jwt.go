package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleManager may manage events and read reports and attendance lists.
const RoleManager = "manager"

// Token is a signed bearer token and its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Claims represents JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens for one issuer.
type Issuer struct {
	name string
	key  []byte
	ttl  time.Duration
	now  func() time.Time
}

// NewIssuer returns an Issuer. A nil now uses time.Now.
func NewIssuer(name, signingKey string, ttl time.Duration, now func() time.Time) (*Issuer, error) {
	if signingKey == "" {
		return nil, errors.New("jwt signing key required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{name: name, key: []byte(signingKey), ttl: ttl, now: now}, nil
}

// Issue signs a token for subject carrying role.
func (i *Issuer) Issue(subject, role string) (Token, error) {
	if subject == "" || role == "" {
		return Token{}, errors.New("subject and role required")
	}
	issuedAt := i.now()
	exp := issuedAt.Add(i.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.name,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns its claims.
func (i *Issuer) Parse(tokenStr string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.name != "" {
		opts = append(opts, jwt.WithIssuer(i.name))
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	if !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return claims, nil
}
