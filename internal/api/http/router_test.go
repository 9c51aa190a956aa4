package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixmycar/diagnostic-service/internal/api/http/handlers"
	"github.com/fixmycar/diagnostic-service/internal/auth"
	"github.com/fixmycar/diagnostic-service/internal/config"
	"github.com/fixmycar/diagnostic-service/internal/domain"
	"github.com/fixmycar/diagnostic-service/internal/mlclient"
	"github.com/fixmycar/diagnostic-service/internal/observability"
	"github.com/fixmycar/diagnostic-service/internal/service"
)

type stubUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = "00000000-0000-0000-0000-0000000000" + strconv.Itoa(10+r.seq)
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == strings.ToLower(strings.TrimSpace(email)) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type stubDiagnosisRepo struct{}

func (stubDiagnosisRepo) Create(_ context.Context, d *domain.Diagnosis) error {
	d.ID = "diag-1"
	return nil
}

func (stubDiagnosisRepo) ListRecentByUser(context.Context, string, int) ([]*domain.Diagnosis, error) {
	return nil, nil
}

func (stubDiagnosisRepo) CountByUser(context.Context, string) (int, error) { return 0, nil }

func (stubDiagnosisRepo) CountByUserSince(context.Context, string, time.Time) (int, error) {
	return 0, nil
}

type stubVehicleRepo struct{}

func (stubVehicleRepo) Create(_ context.Context, v *domain.Vehicle) error {
	v.ID = "veh-1"
	return nil
}

func (stubVehicleRepo) ListByUser(context.Context, string) ([]*domain.Vehicle, error) {
	return []*domain.Vehicle{}, nil
}

func (stubVehicleRepo) CountByUser(context.Context, string) (int, error) { return 0, nil }

func (stubVehicleRepo) CountByUserSince(context.Context, string, time.Time) (int, error) {
	return 0, nil
}

type stubModel struct{}

func (stubModel) Predict(context.Context, *mlclient.PredictRequest) (*mlclient.Prediction, error) {
	return &mlclient.Prediction{
		Category:   "engine",
		Diagnosis:  "worn spark plugs",
		Severity:   "moderate",
		Urgency:    "soon",
		Confidence: 80,
	}, nil
}

func (stubModel) FormData(context.Context) ([]byte, error) {
	return []byte(`{"symptoms":[]}`), nil
}

func (stubModel) Categories(context.Context) ([]byte, error) {
	return []byte(`{"categories":[]}`), nil
}

func (stubModel) Health(context.Context) error { return nil }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := zap.NewNop()
	sessionCfg := config.SessionConfig{
		Secret:     "router-test-secret",
		TTLDays:    7,
		BcryptCost: 4,
		CookieName: "session",
	}

	users := newStubUserRepo()
	authService := service.NewAuthService(sessionCfg, service.AuthDependencies{
		UserRepo: users,
		Logger:   logger,
	})
	diagnosisService := service.NewDiagnosisService(config.DiagnosisConfig{}, service.DiagnosisDependencies{
		Model:         stubModel{},
		DiagnosisRepo: stubDiagnosisRepo{},
		VehicleRepo:   stubVehicleRepo{},
		Logger:        logger,
	})

	store := auth.NewSessionStore(sessionCfg, false)
	resolver := auth.NewIdentityResolver(store, authService.TokenManager(), users, logger)
	gate := auth.NewGate(auth.DefaultPolicy(), store, authService.TokenManager(), logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("diagnostic-service", "test", nil, nil, diagnosisService),
		Auth:      handlers.NewAuthHandler(authService, store, resolver),
		Diagnosis: handlers.NewDiagnosisHandler(diagnosisService),
		Dashboard: handlers.NewDashboardHandler(diagnosisService, stubVehicleRepo{}),
		Gate:      gate,
		Resolver:  resolver,
	})
	return app
}

func jsonRequest(method, target string, payload any) *stdhttp.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionFromResponse(t *testing.T, resp *stdhttp.Response) *stdhttp.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}
	return nil
}

func decodeBody(t *testing.T, resp *stdhttp.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return parsed
}

func registerOwner(t *testing.T, app *fiber.App, email, password string) *stdhttp.Cookie {
	t.Helper()

	resp, err := app.Test(jsonRequest(fiber.MethodPost, "/auth/register", map[string]string{
		"name":     "Router Test",
		"email":    email,
		"password": password,
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	cookie := sessionFromResponse(t, resp)
	if cookie == nil {
		t.Fatal("register set no session cookie")
	}
	return cookie
}

func TestLoginFlow(t *testing.T) {
	app := newTestApp(t)
	registerOwner(t, app, "driver@example.com", "roadworthy1")

	t.Run("valid credentials set a session", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/auth/login", map[string]string{
			"email":    "driver@example.com",
			"password": "roadworthy1",
		}))
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		cookie := sessionFromResponse(t, resp)
		if cookie == nil {
			t.Fatal("no session cookie set")
		}
		if !cookie.HttpOnly {
			t.Error("session cookie must be HttpOnly")
		}

		body := decodeBody(t, resp)
		if body["redirectTo"] != "/dashboard" {
			t.Errorf("redirectTo = %v", body["redirectTo"])
		}
		user, _ := body["user"].(map[string]any)
		if user["email"] != "driver@example.com" || user["role"] != "OWNER" {
			t.Errorf("user = %v", user)
		}
		if _, leaked := user["password_hash"]; leaked {
			t.Error("credential material leaked in response")
		}
	})

	t.Run("wrong password is a generic 401", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/auth/login", map[string]string{
			"email":    "driver@example.com",
			"password": "not-the-password",
		}))
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if sessionFromResponse(t, resp) != nil {
			t.Error("failed login must not set a session cookie")
		}

		body := decodeBody(t, resp)
		errObj, _ := body["error"].(map[string]any)
		if errObj["code"] != "INVALID_CREDENTIALS" {
			t.Errorf("error = %v", errObj)
		}
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/auth/register", map[string]string{
			"name":     "Second Try",
			"email":    "driver@example.com",
			"password": "roadworthy1",
		}))
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if resp.StatusCode != fiber.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})
}

func TestMeEndpoint(t *testing.T) {
	app := newTestApp(t)
	cookie := registerOwner(t, app, "me@example.com", "roadworthy1")

	t.Run("with session", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/auth/me", nil)
		req.AddCookie(cookie)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("me: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if cc := resp.Header.Get(fiber.HeaderCacheControl); !strings.Contains(cc, "no-store") {
			t.Errorf("Cache-Control = %q, identity responses must not be cached", cc)
		}

		body := decodeBody(t, resp)
		user, _ := body["user"].(map[string]any)
		if user["email"] != "me@example.com" {
			t.Errorf("user = %v", user)
		}
	})

	t.Run("without session", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/auth/me", nil))
		if err != nil {
			t.Fatalf("me: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestProtectedRoutes(t *testing.T) {
	app := newTestApp(t)
	cookie := registerOwner(t, app, "dash@example.com", "roadworthy1")

	t.Run("anonymous dashboard request bounces to login", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/dashboard/vehicles", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != fiber.StatusFound {
			t.Fatalf("status = %d, want 302", resp.StatusCode)
		}
		if loc := resp.Header.Get(fiber.HeaderLocation); loc != "/login?callbackUrl=%2Fdashboard%2Fvehicles" {
			t.Errorf("Location = %q", loc)
		}
	})

	t.Run("session grants dashboard access", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/dashboard/stats", nil)
		req.AddCookie(cookie)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if cc := resp.Header.Get(fiber.HeaderCacheControl); !strings.Contains(cc, "no-store") {
			t.Errorf("Cache-Control = %q", cc)
		}
	})

	t.Run("predict requires a session", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/diagnosis/predict", map[string]any{
			"brand": "Toyota", "model": "Corolla", "symptoms": []string{"noise"},
		}))
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("predict with session reaches the model", func(t *testing.T) {
		req := jsonRequest(fiber.MethodPost, "/diagnosis/predict", map[string]any{
			"brand": "Toyota", "model": "Corolla", "symptoms": []string{"noise"},
		})
		req.AddCookie(cookie)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		prediction, _ := body["prediction"].(map[string]any)
		if prediction["diagnosis"] != "worn spark plugs" {
			t.Errorf("prediction = %v", prediction)
		}
	})
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	cookie := registerOwner(t, app, "out@example.com", "roadworthy1")

	t.Run("json logout clears the session", func(t *testing.T) {
		req := jsonRequest(fiber.MethodPost, "/auth/logout", map[string]any{})
		req.AddCookie(cookie)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("logout: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		cleared := sessionFromResponse(t, resp)
		if cleared == nil {
			t.Fatal("logout must overwrite the session cookie")
		}
		if cleared.Value != "" || cleared.Expires.After(time.Now()) {
			t.Errorf("cookie not expired: value=%q expires=%v", cleared.Value, cleared.Expires)
		}
	})

	t.Run("form logout redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/logout", nil)
		req.AddCookie(cookie)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("logout: %v", err)
		}
		if resp.StatusCode != fiber.StatusSeeOther {
			t.Fatalf("status = %d, want 303", resp.StatusCode)
		}
		if loc := resp.Header.Get(fiber.HeaderLocation); loc != "/login" {
			t.Errorf("Location = %q", loc)
		}
	})

	t.Run("logout without a session is a no-op", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(fiber.MethodPost, "/auth/logout", map[string]any{}))
		if err != nil {
			t.Fatalf("logout: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestHealthLive(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/live", nil))
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
