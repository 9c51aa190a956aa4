package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixmycar/diagnostic-service/internal/domain"
)

// fakeUserRepo is an in-memory directory for resolver tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) setRole(id string, role domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].Role = role
}

func (r *fakeUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func newResolverApp(t *testing.T, repo *fakeUserRepo) (*fiber.App, *TokenManager) {
	t.Helper()

	cfg := testSessionConfig()
	store := NewSessionStore(cfg, false)
	tokens := NewTokenManager(cfg)
	resolver := NewIdentityResolver(store, tokens, repo, zap.NewNop())

	app := fiber.New()
	app.Get("/whoami", func(c *fiber.Ctx) error {
		user, err := resolver.ResolveCurrentUser(c)
		if err != nil {
			return err
		}
		if user == nil {
			return c.JSON(fiber.Map{"user": nil})
		}
		return c.JSON(fiber.Map{"user": fiber.Map{"id": user.ID, "role": user.Role}})
	})
	return app, tokens
}

func whoami(t *testing.T, app *fiber.App, token string) map[string]any {
	t.Helper()

	req := httptest.NewRequest("GET", "/whoami", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestResolveCurrentUser(t *testing.T) {
	owner := &domain.User{ID: "user-1", Name: "Alice", Email: "a@b.com", Role: domain.RoleOwner}

	t.Run("absent cookie resolves to nil", func(t *testing.T) {
		app, _ := newResolverApp(t, newFakeUserRepo(owner))
		if body := whoami(t, app, ""); body["user"] != nil {
			t.Errorf("user = %v, want nil", body["user"])
		}
	})

	t.Run("garbage token resolves to nil", func(t *testing.T) {
		app, _ := newResolverApp(t, newFakeUserRepo(owner))
		if body := whoami(t, app, "garbage"); body["user"] != nil {
			t.Errorf("user = %v, want nil", body["user"])
		}
	})

	t.Run("valid token resolves the directory record", func(t *testing.T) {
		app, tokens := newResolverApp(t, newFakeUserRepo(owner))
		token, _, err := tokens.Issue(domain.SessionClaims{
			SubjectID: owner.ID, Email: owner.Email, Name: owner.Name, Role: owner.Role,
		})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}

		body := whoami(t, app, token)
		user, _ := body["user"].(map[string]any)
		if user == nil || user["id"] != "user-1" {
			t.Fatalf("user = %v", body["user"])
		}
	})

	t.Run("deleted subject resolves to nil", func(t *testing.T) {
		repo := newFakeUserRepo(owner)
		app, tokens := newResolverApp(t, repo)
		token, _, err := tokens.Issue(domain.SessionClaims{
			SubjectID: owner.ID, Email: owner.Email, Name: owner.Name, Role: owner.Role,
		})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}

		repo.delete(owner.ID)
		if body := whoami(t, app, token); body["user"] != nil {
			t.Errorf("user = %v, want nil after deletion", body["user"])
		}
	})
}

// A role change in the directory must take effect without re-authentication:
// the token proves identity, the directory owns current role and name.
func TestResolverDirectoryWinsOverStaleClaims(t *testing.T) {
	owner := &domain.User{ID: "user-1", Name: "Alice", Email: "a@b.com", Role: domain.RoleOwner}
	repo := newFakeUserRepo(owner)
	app, tokens := newResolverApp(t, repo)

	token, _, err := tokens.Issue(domain.SessionClaims{
		SubjectID: owner.ID, Email: owner.Email, Name: owner.Name, Role: domain.RoleOwner,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	repo.setRole(owner.ID, domain.RoleAdmin)

	body := whoami(t, app, token)
	user, _ := body["user"].(map[string]any)
	if user == nil {
		t.Fatal("user not resolved")
	}
	if user["role"] != string(domain.RoleAdmin) {
		t.Errorf("role = %v, want ADMIN from directory", user["role"])
	}
}
