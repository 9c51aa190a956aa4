package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixmycar/diagnostic-service/internal/domain"
)

// DiagnosisRepository defines persistence access for stored predictions.
type DiagnosisRepository interface {
	Create(ctx context.Context, diagnosis *domain.Diagnosis) error
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*domain.Diagnosis, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type diagnosisRepository struct {
	pool *pgxpool.Pool
}

// NewDiagnosisRepository returns a Postgres-backed implementation.
func NewDiagnosisRepository(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepository{pool: pool}
}

func (r *diagnosisRepository) Create(ctx context.Context, diagnosis *domain.Diagnosis) error {
	const query = `
        INSERT INTO diagnoses (user_id, vehicle_brand, vehicle_model, category, result,
            part_involved, severity, urgency, repair_action, cost_min, cost_max, confidence)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		diagnosis.UserID,
		diagnosis.VehicleBrand,
		diagnosis.VehicleModel,
		diagnosis.Category,
		diagnosis.Result,
		diagnosis.PartInvolved,
		diagnosis.Severity,
		diagnosis.Urgency,
		diagnosis.RepairAction,
		diagnosis.CostMin,
		diagnosis.CostMax,
		diagnosis.Confidence,
	).Scan(&diagnosis.ID, &diagnosis.CreatedAt)
}

func (r *diagnosisRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*domain.Diagnosis, error) {
	const query = `
        SELECT id, user_id, vehicle_brand, vehicle_model, category, result,
            part_involved, severity, urgency, repair_action, cost_min, cost_max, confidence, created_at
        FROM diagnoses WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diagnoses []*domain.Diagnosis
	for rows.Next() {
		var d domain.Diagnosis
		if err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.VehicleBrand,
			&d.VehicleModel,
			&d.Category,
			&d.Result,
			&d.PartInvolved,
			&d.Severity,
			&d.Urgency,
			&d.RepairAction,
			&d.CostMin,
			&d.CostMax,
			&d.Confidence,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		diagnoses = append(diagnoses, &d)
	}
	return diagnoses, rows.Err()
}

func (r *diagnosisRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM diagnoses WHERE user_id=$1`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *diagnosisRepository) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM diagnoses WHERE user_id=$1 AND created_at >= $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
