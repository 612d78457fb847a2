package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("signing secret is empty")
)

const TokenTypeAccess = "access"

// Claims carried by access tokens issued by the account service.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uint64 `json:"user_id"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// Manager verifies and, for tooling and tests, mints HS256 bearer tokens.
type Manager struct {
	secret         []byte
	issuer         string
	accessDuration time.Duration
	leeway         time.Duration
	now            func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithLeeway tolerates clock skew when checking exp/nbf/iat.
func WithLeeway(d time.Duration) Option {
	return func(m *Manager) { m.leeway = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager sharing secret with the token issuer.
// An empty issuer disables the iss check.
func NewManager(secret []byte, issuer string, accessDuration time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrMissingKey
	}

	m := &Manager{
		secret:         secret,
		issuer:         issuer,
		accessDuration: accessDuration,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GenerateToken creates an access token for userID.
func (m *Manager) GenerateToken(userID uint64, username string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.accessDuration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:    userID,
		Username:  username,
		TokenType: TokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ValidateToken checks signature, expiry and issuer and returns the claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
		jwt.WithLeeway(m.leeway),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != "" && claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
