package auth

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erp/storesync/internal/infrastructure/config"
)

// Scope grants access to a group of operator endpoints
type Scope string

const (
	// ScopeSyncRead allows reading sync status, logs and reports
	ScopeSyncRead Scope = "sync:read"
	// ScopeSyncWrite allows triggering, resetting and bulk syncing
	ScopeSyncWrite Scope = "sync:write"
	// ScopeSettingsWrite allows replacing the integration settings
	ScopeSettingsWrite Scope = "settings:write"
)

// AllScopes lists every scope, in privilege order
var AllScopes = []Scope{ScopeSyncRead, ScopeSyncWrite, ScopeSettingsWrite}

// ParseScopes splits a comma separated list, rejecting unknown entries
func ParseScopes(raw string) ([]Scope, error) {
	var scopes []Scope
	for _, part := range strings.Split(raw, ",") {
		s := Scope(strings.TrimSpace(part))
		if s == "" {
			continue
		}
		if !slices.Contains(AllScopes, s) {
			return nil, ErrUnknownScope
		}
		if !slices.Contains(scopes, s) {
			scopes = append(scopes, s)
		}
	}
	if len(scopes) == 0 {
		return nil, ErrUnknownScope
	}
	return scopes, nil
}

var (
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrExpiredToken     = errors.New("auth: token has expired")
	ErrTokenNotYetValid = errors.New("auth: token is not yet valid")
	ErrInvalidClaims    = errors.New("auth: invalid token claims")
	ErrMissingOperator  = errors.New("auth: missing operator in claims")
	ErrUnknownScope     = errors.New("auth: unknown scope")
	ErrMissingSecret    = errors.New("auth: signing secret is not configured")
	ErrTokenRevoked     = errors.New("auth: token has been revoked")
)

// Claims identifies an operator and what they may do
type Claims struct {
	jwt.RegisteredClaims
	Operator string  `json:"operator"`
	Scopes   []Scope `json:"scopes"`
}

// HasScope reports whether the token grants s
func (c *Claims) HasScope(s Scope) bool {
	return slices.Contains(c.Scopes, s)
}

// RemainingTTL returns the time until expiry, zero when already expired
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// IssuedToken is a signed token and its metadata
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"`
}

// JWTService issues and validates HS256 operator tokens
type JWTService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewJWTService creates a service from the auth config section
func NewJWTService(cfg config.JWTConfig) *JWTService {
	exp := cfg.TokenExpiration
	if exp <= 0 {
		exp = 12 * time.Hour
	}
	return &JWTService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: exp,
		now:        time.Now,
	}
}

// Issue signs a token for operator. A zero ttl uses the configured expiration.
func (s *JWTService) Issue(operator string, scopes []Scope, ttl time.Duration) (*IssuedToken, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return nil, ErrMissingOperator
	}
	for _, sc := range scopes {
		if !slices.Contains(AllScopes, sc) {
			return nil, ErrUnknownScope
		}
	}
	if ttl <= 0 {
		ttl = s.expiration
	}

	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   operator,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Operator: operator,
		Scopes:   scopes,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{
		Token:     signed,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		TokenType: "Bearer",
	}, nil
}

// Validate parses a token and checks signature, time window, issuer and
// operator
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Operator == "" {
		return nil, ErrMissingOperator
	}
	return claims, nil
}

// Expiration returns the default token lifetime
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}
