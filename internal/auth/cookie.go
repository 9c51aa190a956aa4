package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fixmycar/diagnostic-service/internal/config"
)

// SessionStore binds a signed credential to the transport cookie. It knows
// nothing about claim semantics; verification belongs to TokenManager.
type SessionStore struct {
	cookieName string
	secure     bool
}

// NewSessionStore builds the store. Cookies are Secure-only in production.
func NewSessionStore(cfg config.SessionConfig, production bool) *SessionStore {
	name := cfg.CookieName
	if name == "" {
		name = "session"
	}
	return &SessionStore{cookieName: name, secure: production}
}

// Persist writes the credential cookie on the outgoing response, expiring
// at the credential's own expiry.
func (s *SessionStore) Persist(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Read returns the inbound credential, or "" when absent. No verification
// happens here.
func (s *SessionStore) Read(c *fiber.Ctx) string {
	return c.Cookies(s.cookieName)
}

// Clear removes the cookie. Clearing an absent cookie is a no-op.
func (s *SessionStore) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
