package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fixmycar/diagnostic-service/internal/auth"
	"github.com/fixmycar/diagnostic-service/internal/mlclient"
	"github.com/fixmycar/diagnostic-service/internal/service"
	apperrors "github.com/fixmycar/diagnostic-service/pkg/util"
)

// DiagnosisHandler exposes the intake/prediction endpoints.
type DiagnosisHandler struct {
	diagnosis *service.DiagnosisService
}

// NewDiagnosisHandler constructs handler.
func NewDiagnosisHandler(diagnosisService *service.DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{diagnosis: diagnosisService}
}

// Predict handles POST /diagnosis/predict.
func (h *DiagnosisHandler) Predict(c *fiber.Ctx) error {
	user, ok := auth.CurrentUserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	var req mlclient.PredictRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Brand == "" || req.Model == "" {
		return apperrors.NewValidationError("brand and model required", nil)
	}
	if len(req.Symptoms) == 0 && req.ProblemDescription == "" {
		return apperrors.NewValidationError("symptoms or a problem description required", nil)
	}

	prediction, diagnosis, err := h.diagnosis.PredictAndSave(c.Context(), user.ID, &req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"prediction":   prediction,
		"diagnosis_id": diagnosis.ID,
	})
}

// FormData handles GET /diagnosis/form-data.
func (h *DiagnosisHandler) FormData(c *fiber.Ctx) error {
	data, err := h.diagnosis.FormData(c.Context())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// Categories handles GET /diagnosis/categories.
func (h *DiagnosisHandler) Categories(c *fiber.Ctx) error {
	data, err := h.diagnosis.Categories(c.Context())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// ModelHealth handles GET /diagnosis/health.
func (h *DiagnosisHandler) ModelHealth(c *fiber.Ctx) error {
	if err := h.diagnosis.ModelHealthy(c.Context()); err != nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
