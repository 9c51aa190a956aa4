package auth

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fixmycar/diagnostic-service/internal/domain"
)

// RouteClass partitions request paths for the access policy.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
	RouteAuthOnly
)

// Policy holds the path prefixes the gate enforces.
type Policy struct {
	ProtectedPrefixes []string
	AuthPrefixes      []string
}

// DefaultPolicy matches the application's route namespaces.
func DefaultPolicy() Policy {
	return Policy{
		ProtectedPrefixes: []string{"/dashboard", "/admin", "/mechanic", "/insurer"},
		AuthPrefixes:      []string{"/login", "/register"},
	}
}

// Classify assigns a path to exactly one route class.
func (p Policy) Classify(path string) RouteClass {
	for _, prefix := range p.ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return RouteProtected
		}
	}
	for _, prefix := range p.AuthPrefixes {
		if strings.HasPrefix(path, prefix) {
			return RouteAuthOnly
		}
	}
	return RoutePublic
}

// Decision is the per-request outcome of the access policy. An empty
// Redirect means allow. NoStore marks responses that must never be cached
// so the browser back button cannot replay protected content after logout.
type Decision struct {
	Redirect string
	NoStore  bool
}

// Decide evaluates the access decision table. It is pure: header mutation
// is a separate step applied at the transport boundary.
func Decide(class RouteClass, authenticated bool, path string, role domain.Role) Decision {
	switch class {
	case RouteProtected:
		if !authenticated {
			return Decision{
				Redirect: "/login?callbackUrl=" + url.QueryEscape(path),
				NoStore:  true,
			}
		}
		return Decision{NoStore: true}
	case RouteAuthOnly:
		if authenticated {
			return Decision{Redirect: RoleHome(role)}
		}
		return Decision{}
	default:
		return Decision{}
	}
}

// ApplyNoStore attaches the strict cache-control headers.
func ApplyNoStore(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
}

// Gate enforces the access policy on every navigation.
type Gate struct {
	policy Policy
	store  *SessionStore
	tokens *TokenManager
	logger *zap.Logger
}

// NewGate constructs the request gate.
func NewGate(policy Policy, store *SessionStore, tokens *TokenManager, logger *zap.Logger) *Gate {
	return &Gate{policy: policy, store: store, tokens: tokens, logger: logger}
}

// Handle classifies the request and enforces the decision. Verification
// failures of any kind read as unauthenticated; the gate always produces a
// decision, never an error.
func (g *Gate) Handle(c *fiber.Ctx) error {
	path := c.Path()
	class := g.policy.Classify(path)
	if class == RoutePublic {
		return c.Next()
	}

	authenticated := false
	var role domain.Role
	if token := g.store.Read(c); token != "" {
		session, err := g.tokens.Verify(token)
		if err != nil {
			g.logger.Debug("gate: session rejected", zap.String("path", path), zap.Error(err))
		} else {
			authenticated = true
			role = session.Role
		}
	}

	decision := Decide(class, authenticated, path, role)
	if decision.NoStore {
		ApplyNoStore(c)
	}
	if decision.Redirect != "" {
		return c.Redirect(decision.Redirect, fiber.StatusFound)
	}
	return c.Next()
}
