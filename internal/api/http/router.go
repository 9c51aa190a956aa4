package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fixmycar/diagnostic-service/internal/api/http/handlers"
	"github.com/fixmycar/diagnostic-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Diagnosis *handlers.DiagnosisHandler
	Dashboard *handlers.DashboardHandler
	Gate      *auth.Gate
	Resolver  *auth.IdentityResolver
}

// RegisterRoutes wires HTTP routes. The access gate runs on every request
// before any handler; protected groups additionally load the live user.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Gate.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Auth.Me)
	authGroup.Get("/google", cfg.Auth.GoogleStart)
	authGroup.Get("/google/callback", cfg.Auth.GoogleCallback)

	diagnosisGroup := app.Group("/diagnosis")
	diagnosisGroup.Get("/form-data", cfg.Diagnosis.FormData)
	diagnosisGroup.Get("/categories", cfg.Diagnosis.Categories)
	diagnosisGroup.Get("/health", cfg.Diagnosis.ModelHealth)
	diagnosisGroup.Post("/predict", cfg.Resolver.RequireUser, cfg.Diagnosis.Predict)

	dashboardGroup := app.Group("/dashboard", cfg.Resolver.RequireUser)
	dashboardGroup.Get("/stats", cfg.Dashboard.Stats)
	dashboardGroup.Get("/vehicles", cfg.Dashboard.ListVehicles)
	dashboardGroup.Post("/vehicles", cfg.Dashboard.CreateVehicle)
}
