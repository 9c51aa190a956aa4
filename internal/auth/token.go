package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/fixmycar/diagnostic-service/internal/config"
	"github.com/fixmycar/diagnostic-service/internal/domain"
)

// Verification failure kinds. Callers outside this package normally collapse
// all of them to "not authenticated"; the resolver logs the distinction.
var (
	ErrTokenMalformed = errors.New("session token malformed")
	ErrTokenSignature = errors.New("session token signature invalid")
	ErrTokenExpired   = errors.New("session token expired")
)

// TokenManager issues and verifies signed session credentials. The signing
// secret is injected via config at construction; there is no process-global
// key state.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager from session configuration.
func NewTokenManager(cfg config.SessionConfig) *TokenManager {
	return &TokenManager{secret: []byte(cfg.Secret), ttl: cfg.TTL(), now: time.Now}
}

// WithClock overrides the time source, used by expiry tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// Claims describes the session JWT payload.
type Claims struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a credential for the given identity. Expiry is always
// issued-at plus the configured TTL; credentials are never renewed in place.
func (tm *TokenManager) Issue(claims domain.SessionClaims) (string, time.Time, error) {
	if claims.SubjectID == "" || claims.Email == "" || claims.Name == "" {
		return "", time.Time{}, errors.New("issue: incomplete identity claims")
	}
	if !claims.Role.Valid() {
		return "", time.Time{}, errors.New("issue: role outside enumeration")
	}

	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: claims.Email,
		Name:  claims.Name,
		Role:  claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.SubjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates a credential and returns the decoded session. The result
// depends only on the token, the injected secret and the clock.
func (tm *TokenManager) Verify(tokenStr string) (*domain.Session, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" || !claims.Role.Valid() || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrTokenMalformed
	}

	return &domain.Session{
		SessionClaims: domain.SessionClaims{
			SubjectID: claims.Subject,
			Email:     claims.Email,
			Name:      claims.Name,
			Role:      claims.Role,
		},
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
