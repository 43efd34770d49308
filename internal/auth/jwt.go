package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in tokens.
const (
	RoleAdmin        = "admin"
	RoleStudent      = "student"
	RoleRegistration = "registration"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Token is a signed token with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims represents the JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 tokens.
type Issuer struct {
	name string
	key  []byte
	now  func() time.Time
}

// NewIssuer creates an issuer for the given signing key.
func NewIssuer(name, key string) *Issuer {
	return &Issuer{name: name, key: []byte(key), now: time.Now}
}

// Issue signs a token for subject with role, valid for ttl.
func (i *Issuer) Issue(subject, role string, ttl time.Duration) (Token, error) {
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.name,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns its claims.
func (i *Issuer) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if i.name != "" && claims.Issuer != i.name {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}

// ParseRole parses tokenStr and requires the given role.
func (i *Issuer) ParseRole(tokenStr, role string) (Claims, error) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if claims.Role != role {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
