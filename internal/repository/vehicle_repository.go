package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixmycar/diagnostic-service/internal/domain"
)

// VehicleRepository defines persistence access for registered vehicles.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Vehicle, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type vehicleRepository struct {
	pool *pgxpool.Pool
}

// NewVehicleRepository returns a Postgres-backed implementation.
func NewVehicleRepository(pool *pgxpool.Pool) VehicleRepository {
	return &vehicleRepository{pool: pool}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	const query = `
        INSERT INTO vehicles (user_id, brand, model, year, fuel_type, transmission, mileage)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		vehicle.UserID,
		vehicle.Brand,
		vehicle.Model,
		vehicle.Year,
		vehicle.FuelType,
		vehicle.Transmission,
		vehicle.Mileage,
	).Scan(&vehicle.ID, &vehicle.CreatedAt, &vehicle.UpdatedAt)
}

func (r *vehicleRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Vehicle, error) {
	const query = `
        SELECT id, user_id, brand, model, year, fuel_type, transmission, mileage, created_at, updated_at
        FROM vehicles WHERE user_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.Brand,
			&v.Model,
			&v.Year,
			&v.FuelType,
			&v.Transmission,
			&v.Mileage,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, &v)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM vehicles WHERE user_id=$1`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *vehicleRepository) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM vehicles WHERE user_id=$1 AND created_at >= $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
