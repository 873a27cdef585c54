// Package identity issues and verifies admin bearer tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"

	DefaultTokenTTL = 8 * time.Hour
)

var (
	ErrNoToken            = errors.New("no authentication token provided")
	ErrInvalidToken       = errors.New("invalid authentication token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrForbidden          = errors.New("principal is not an admin")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfigured      = errors.New("admin credentials not set")
	ErrMissingSecret      = errors.New("token secret is required")
)

// Principal is the authenticated caller of an admin route.
type Principal struct {
	Username string
	Role     string
}

// Claims are the JWT claims carried by an admin token.
type Claims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier resolves request credentials to a principal.
type Verifier interface {
	Verify(r *http.Request) (Principal, error)
}

// TokenManager signs and validates HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	m := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token for principal that expires after the manager's TTL.
func (m *TokenManager) Issue(principal Principal) (string, error) {
	now := m.now()
	claims := &Claims{
		Role:     principal.Role,
		Username: principal.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns its principal.
func (m *TokenManager) Parse(tokenString string) (Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Username: claims.Username, Role: claims.Role}, nil
}

// Verify reads the bearer token of r and requires the admin role.
func (m *TokenManager) Verify(r *http.Request) (Principal, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return Principal{}, ErrNoToken
	}
	principal, err := m.Parse(strings.TrimSpace(token))
	if err != nil {
		return Principal{}, err
	}
	if principal.Role != RoleAdmin {
		return Principal{}, ErrForbidden
	}
	return principal, nil
}

// Authenticator checks admin credentials against a bcrypt hash.
type Authenticator struct {
	username     string
	passwordHash []byte
}

func NewAuthenticator(username, passwordHash string) *Authenticator {
	return &Authenticator{
		username:     strings.TrimSpace(username),
		passwordHash: []byte(strings.TrimSpace(passwordHash)),
	}
}

// Configured reports whether both username and hash are set.
func (a *Authenticator) Configured() bool {
	return a != nil && a.username != "" && len(a.passwordHash) > 0
}

// Authenticate returns the admin principal when the credentials match.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}
	if !a.Configured() {
		return Principal{}, ErrNotConfigured
	}
	if username != a.username {
		return Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("compare password: %w", err)
	}
	return Principal{Username: username, Role: RoleAdmin}, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
