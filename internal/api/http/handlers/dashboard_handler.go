package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fixmycar/diagnostic-service/internal/api/dto"
	"github.com/fixmycar/diagnostic-service/internal/auth"
	"github.com/fixmycar/diagnostic-service/internal/domain"
	"github.com/fixmycar/diagnostic-service/internal/repository"
	"github.com/fixmycar/diagnostic-service/internal/service"
	apperrors "github.com/fixmycar/diagnostic-service/pkg/util"
)

// DashboardHandler exposes per-user dashboard endpoints.
type DashboardHandler struct {
	diagnosis *service.DiagnosisService
	vehicles  repository.VehicleRepository
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(diagnosisService *service.DiagnosisService, vehicles repository.VehicleRepository) *DashboardHandler {
	return &DashboardHandler{diagnosis: diagnosisService, vehicles: vehicles}
}

// Stats handles GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	user, ok := auth.CurrentUserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	stats, err := h.diagnosis.Stats(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stats": stats})
}

// ListVehicles handles GET /dashboard/vehicles.
func (h *DashboardHandler) ListVehicles(c *fiber.Ctx) error {
	user, ok := auth.CurrentUserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	vehicles, err := h.vehicles.ListByUser(c.Context(), user.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, dto.NewVehicleResponse(v))
	}
	return c.JSON(fiber.Map{"vehicles": out})
}

// CreateVehicle handles POST /dashboard/vehicles.
func (h *DashboardHandler) CreateVehicle(c *fiber.Ctx) error {
	user, ok := auth.CurrentUserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	var req dto.VehicleCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Brand == "" || req.Model == "" {
		return apperrors.NewValidationError("brand and model required", nil)
	}

	vehicle := &domain.Vehicle{
		UserID:       user.ID,
		Brand:        req.Brand,
		Model:        req.Model,
		Year:         req.Year,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		Mileage:      req.Mileage,
	}
	if err := h.vehicles.Create(c.Context(), vehicle); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"vehicle": dto.NewVehicleResponse(vehicle)})
}
