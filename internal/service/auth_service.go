package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixmycar/diagnostic-service/internal/auth"
	"github.com/fixmycar/diagnostic-service/internal/config"
	"github.com/fixmycar/diagnostic-service/internal/domain"
	"github.com/fixmycar/diagnostic-service/internal/events"
	"github.com/fixmycar/diagnostic-service/internal/oauth"
	"github.com/fixmycar/diagnostic-service/internal/repository"
	apperrors "github.com/fixmycar/diagnostic-service/pkg/util"
)

// AuthService coordinates registration, login and OAuth-callback flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	google     oauth.ProfileFetcher
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Google     oauth.ProfileFetcher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.SessionConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     auth.NewTokenManager(cfg),
		google:     deps.Google,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// RegisterUser creates a new account and issues its first session credential.
// Self-service ADMIN signup is rejected; an empty role defaults to OWNER.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, string, time.Time, error) {
	if role == "" {
		role = domain.RoleOwner
	}
	if !role.Valid() {
		return nil, "", time.Time{}, apperrors.NewValidationError("unknown role", nil)
	}
	if role == domain.RoleAdmin {
		return nil, "", time.Time{}, apperrors.NewForbidden("admin accounts are invite-only")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
	}

	token, exp, err := s.issueFor(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:  user.Email,
		Role:   user.Role,
		Method: "password",
	})
	return user, token, exp, nil
}

// LoginUser authenticates by email and password. Unknown email and wrong
// password fail identically so account existence cannot be probed.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
	}

	token, exp, err := s.issueFor(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{
		Email:  user.Email,
		Role:   user.Role,
		Method: "password",
	})
	return user, token, exp, nil
}

// LoginWithGoogle exchanges the authorization code and links or creates the
// account the provider's email points at. New accounts start as OWNER.
func (s *AuthService) LoginWithGoogle(ctx context.Context, code, redirectURI string) (*domain.User, string, time.Time, error) {
	profile, err := s.google.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
	}

	user, err := s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == pgx.ErrNoRows:
		user = &domain.User{
			Name:  profile.Name,
			Email: profile.Email,
			Role:  domain.RoleOwner,
		}
		if profile.AvatarURL != "" {
			user.Image = &profile.AvatarURL
		}
		if profile.EmailVerified {
			now := time.Now()
			user.EmailVerified = &now
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
		}
		s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
			Email:  user.Email,
			Role:   user.Role,
			Method: "google",
		})
	case err != nil:
		return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
	default:
		if profile.AvatarURL != "" {
			user.Image = &profile.AvatarURL
		}
		if profile.EmailVerified && user.EmailVerified == nil {
			now := time.Now()
			user.EmailVerified = &now
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, "", time.Time{}, apperrors.NewUpstreamUnavailable(err)
		}
	}

	token, exp, err := s.issueFor(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{
		Email:  user.Email,
		Role:   user.Role,
		Method: "google",
	})
	return user, token, exp, nil
}

// GoogleAuthURL builds the consent redirect for the OAuth entry route.
func (s *AuthService) GoogleAuthURL(redirectURI, state string) string {
	return s.google.AuthCodeURL(redirectURI, state)
}

// TokenManager exposes the codec for the gate and resolver.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) issueFor(user *domain.User) (string, time.Time, error) {
	return s.tokens.Issue(domain.SessionClaims{
		SubjectID: user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
	})
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("publish auth event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
