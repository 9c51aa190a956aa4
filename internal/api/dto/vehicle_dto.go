package dto

import (
	"time"

	"github.com/fixmycar/diagnostic-service/internal/domain"
)

// VehicleCreateRequest payload for registering a vehicle.
type VehicleCreateRequest struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	FuelType     string `json:"fuel_type"`
	Transmission string `json:"transmission"`
	Mileage      int    `json:"mileage"`
}

// VehicleResponse is the public view of a registered vehicle.
type VehicleResponse struct {
	ID           string    `json:"id"`
	Brand        string    `json:"brand"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	FuelType     string    `json:"fuel_type"`
	Transmission string    `json:"transmission"`
	Mileage      int       `json:"mileage"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewVehicleResponse maps a vehicle record.
func NewVehicleResponse(v *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:           v.ID,
		Brand:        v.Brand,
		Model:        v.Model,
		Year:         v.Year,
		FuelType:     v.FuelType,
		Transmission: v.Transmission,
		Mileage:      v.Mileage,
		CreatedAt:    v.CreatedAt,
	}
}
