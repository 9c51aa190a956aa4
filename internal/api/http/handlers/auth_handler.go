package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fixmycar/diagnostic-service/internal/api/dto"
	"github.com/fixmycar/diagnostic-service/internal/auth"
	"github.com/fixmycar/diagnostic-service/internal/domain"
	"github.com/fixmycar/diagnostic-service/internal/service"
	apperrors "github.com/fixmycar/diagnostic-service/pkg/util"
)

// AuthHandler exposes session and account endpoints.
type AuthHandler struct {
	authService *service.AuthService
	store       *auth.SessionStore
	resolver    *auth.IdentityResolver
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, store *auth.SessionStore, resolver *auth.IdentityResolver) *AuthHandler {
	return &AuthHandler{authService: authService, store: store, resolver: resolver}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("name, email and password required", nil)
	}

	user, token, exp, err := h.authService.RegisterUser(c.Context(), req.Name, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		return err
	}

	h.store.Persist(c, token, exp)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user":       dto.NewUserResponse(user),
		"redirectTo": auth.RoleHome(user.Role),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, exp, err := h.authService.LoginUser(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.store.Persist(c, token, exp)
	return c.JSON(fiber.Map{
		"user":       dto.NewUserResponse(user),
		"redirectTo": auth.RoleHome(user.Role),
	})
}

// Logout handles POST /auth/logout. Clearing an absent session is a no-op.
// Form submissions get a 303 back to the login page; API calls get JSON.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.store.Clear(c)

	contentType := c.Get(fiber.HeaderContentType)
	if !strings.Contains(contentType, fiber.MIMEApplicationJSON) {
		return c.Redirect("/login", http.StatusSeeOther)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Me handles GET /auth/me. Responses are never cacheable.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	auth.ApplyNoStore(c)

	user, err := h.resolver.ResolveCurrentUser(c)
	if err != nil {
		return apperrors.MapError(err)
	}
	if user == nil {
		return apperrors.NewUnauthorized("not authenticated")
	}
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

// GoogleStart handles GET /auth/google.
func (h *AuthHandler) GoogleStart(c *fiber.Ctx) error {
	redirectURI := c.BaseURL() + "/auth/google/callback"
	return c.Redirect(h.authService.GoogleAuthURL(redirectURI, uuid.NewString()), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback. Provider failures bounce
// back to the login page with an error marker instead of surfacing detail.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	if c.Query("error") != "" {
		return c.Redirect("/login?error=google_auth_failed", http.StatusFound)
	}
	code := c.Query("code")
	if code == "" {
		return c.Redirect("/login?error=no_code", http.StatusFound)
	}

	redirectURI := c.BaseURL() + "/auth/google/callback"
	user, token, exp, err := h.authService.LoginWithGoogle(c.Context(), code, redirectURI)
	if err != nil {
		return c.Redirect("/login?error=callback_failed", http.StatusFound)
	}

	h.store.Persist(c, token, exp)
	return c.Redirect(auth.RoleHome(user.Role), http.StatusFound)
}
