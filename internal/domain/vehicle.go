package domain

import "time"

// Vehicle is a car registered by an owner for diagnostics.
type Vehicle struct {
	ID           string
	UserID       string
	Brand        string
	Model        string
	Year         int
	FuelType     string
	Transmission string
	Mileage      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
