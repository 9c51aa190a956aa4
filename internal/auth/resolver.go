package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixmycar/diagnostic-service/internal/domain"
	"github.com/fixmycar/diagnostic-service/internal/repository"
	apperrors "github.com/fixmycar/diagnostic-service/pkg/util"
)

const currentUserKey = "auth_current_user"

// IdentityResolver maps a verified credential to the live directory record.
type IdentityResolver struct {
	store  *SessionStore
	tokens *TokenManager
	users  repository.UserRepository
	logger *zap.Logger
}

// NewIdentityResolver constructs the resolver.
func NewIdentityResolver(store *SessionStore, tokens *TokenManager, users repository.UserRepository, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{store: store, tokens: tokens, users: users, logger: logger}
}

// ResolveCurrentUser returns the live user for the request's session, or nil.
// Missing cookie, any verification failure and a deleted account all read as
// nil; the distinct cause goes to the log, never to the caller. The returned
// record is re-fetched from the directory every call, so role or name changes
// take effect without re-authentication.
func (r *IdentityResolver) ResolveCurrentUser(c *fiber.Ctx) (*domain.User, error) {
	token := r.store.Read(c)
	if token == "" {
		return nil, nil
	}

	session, err := r.tokens.Verify(token)
	if err != nil {
		r.logger.Debug("resolver: credential rejected", zap.Error(err))
		return nil, nil
	}

	user, err := r.users.GetByID(c.Context(), session.SubjectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug("resolver: subject no longer in directory", zap.String("subject_id", session.SubjectID))
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// RequireUser loads the current user and rejects unauthenticated API calls.
func (r *IdentityResolver) RequireUser(c *fiber.Ctx) error {
	user, err := r.ResolveCurrentUser(c)
	if err != nil {
		return apperrors.MapError(err)
	}
	if user == nil {
		return apperrors.NewUnauthorized("not authenticated")
	}
	c.Locals(currentUserKey, user)
	return c.Next()
}

// CurrentUserFromContext retrieves the user loaded by RequireUser.
func CurrentUserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	val := c.Locals(currentUserKey)
	if val == nil {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}
