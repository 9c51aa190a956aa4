package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fixmycar/diagnostic-service/internal/config"
	"github.com/fixmycar/diagnostic-service/internal/domain"
	"github.com/fixmycar/diagnostic-service/internal/events"
	"github.com/fixmycar/diagnostic-service/internal/mlclient"
	"github.com/fixmycar/diagnostic-service/internal/repository"
	apperrors "github.com/fixmycar/diagnostic-service/pkg/util"
)

const (
	cacheKeyFormData   = "diagnosis:form-data"
	cacheKeyCategories = "diagnosis:categories"

	recentDiagnosesWindow = 10
)

// ModelClient is the surface of the external prediction service this
// service depends on.
type ModelClient interface {
	Predict(ctx context.Context, req *mlclient.PredictRequest) (*mlclient.Prediction, error)
	FormData(ctx context.Context) ([]byte, error)
	Categories(ctx context.Context) ([]byte, error)
	Health(ctx context.Context) error
}

// DiagnosisService forwards intake forms to the prediction model, persists
// results and derives dashboard statistics.
type DiagnosisService struct {
	model      ModelClient
	diagnoses  repository.DiagnosisRepository
	vehicles   repository.VehicleRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// DiagnosisDependencies encapsulates collaborator requirements.
type DiagnosisDependencies struct {
	Model         ModelClient
	DiagnosisRepo repository.DiagnosisRepository
	VehicleRepo   repository.VehicleRepository
	Cache         *redis.Client
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewDiagnosisService builds the service.
func NewDiagnosisService(cfg config.DiagnosisConfig, deps DiagnosisDependencies) *DiagnosisService {
	return &DiagnosisService{
		model:      deps.Model,
		diagnoses:  deps.DiagnosisRepo,
		vehicles:   deps.VehicleRepo,
		cache:      deps.Cache,
		cacheTTL:   cfg.CacheTTL(),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// PredictAndSave submits the intake payload, stores the returned diagnosis
// for the user and publishes a completion event.
func (s *DiagnosisService) PredictAndSave(ctx context.Context, userID string, req *mlclient.PredictRequest) (*mlclient.Prediction, *domain.Diagnosis, error) {
	prediction, err := s.model.Predict(ctx, req)
	if err != nil {
		return nil, nil, apperrors.NewUpstreamUnavailable(err)
	}

	diagnosis := &domain.Diagnosis{
		UserID:       userID,
		VehicleBrand: req.Brand,
		VehicleModel: req.Model,
		Category:     prediction.Category,
		Result:       prediction.Diagnosis,
		PartInvolved: prediction.PartInvolved,
		Severity:     domain.DiagnosisSeverity(prediction.Severity),
		Urgency:      prediction.Urgency,
		RepairAction: prediction.RepairAction,
		CostMin:      prediction.EstimatedCostMin,
		CostMax:      prediction.EstimatedCostMax,
		Confidence:   prediction.Confidence,
	}
	if err := s.diagnoses.Create(ctx, diagnosis); err != nil {
		return nil, nil, apperrors.NewUpstreamUnavailable(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDiagnosisCompleted,
			UserID:    userID,
			Timestamp: time.Now(),
			Payload: events.DiagnosisCompletedPayload{
				DiagnosisID: diagnosis.ID,
				Category:    diagnosis.Category,
				Severity:    diagnosis.Severity,
				Urgency:     diagnosis.Urgency,
				Confidence:  diagnosis.Confidence,
			},
		})
	}
	return prediction, diagnosis, nil
}

// FormData returns the model's intake form catalog, cached in Redis.
func (s *DiagnosisService) FormData(ctx context.Context) ([]byte, error) {
	return s.cached(ctx, cacheKeyFormData, s.model.FormData)
}

// Categories returns the model's category lists, cached in Redis.
func (s *DiagnosisService) Categories(ctx context.Context) ([]byte, error) {
	return s.cached(ctx, cacheKeyCategories, s.model.Categories)
}

// ModelHealthy reports whether the prediction service answers its status endpoint.
func (s *DiagnosisService) ModelHealthy(ctx context.Context) error {
	return s.model.Health(ctx)
}

func (s *DiagnosisService) cached(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			return data, nil
		} else if err != redis.Nil && s.logger != nil {
			s.logger.Warn("diagnosis cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	data, err := fetch(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil && s.logger != nil {
			s.logger.Warn("diagnosis cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return data, nil
}

// DashboardStats aggregates per-user figures for the dashboard.
type DashboardStats struct {
	VehiclesCount    int `json:"vehicles_count"`
	DiagnosticsCount int `json:"diagnostics_count"`
	ReportsCount     int `json:"reports_count"`
	HealthScore      int `json:"health_score"`
	VehiclesTrend    int `json:"vehicles_trend"`
	DiagnosticsTrend int `json:"diagnostics_trend"`
}

// Stats computes the dashboard statistics for a user: raw counts, a derived
// vehicle-health score and week-over-week trends.
func (s *DiagnosisService) Stats(ctx context.Context, userID string) (*DashboardStats, error) {
	vehiclesCount, err := s.vehicles.CountByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	diagnosticsCount, err := s.diagnoses.CountByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	recent, err := s.diagnoses.ListRecentByUser(ctx, userID, recentDiagnosesWindow)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}

	now := time.Now()
	sevenDaysAgo := now.AddDate(0, 0, -7)
	fourteenDaysAgo := now.AddDate(0, 0, -14)

	recentVehicles, err := s.vehicles.CountByUserSince(ctx, userID, sevenDaysAgo)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	vehiclesSince14, err := s.vehicles.CountByUserSince(ctx, userID, fourteenDaysAgo)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	recentDiagnoses, err := s.diagnoses.CountByUserSince(ctx, userID, sevenDaysAgo)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	diagnosesSince14, err := s.diagnoses.CountByUserSince(ctx, userID, fourteenDaysAgo)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(err)
	}

	return &DashboardStats{
		VehiclesCount:    vehiclesCount,
		DiagnosticsCount: diagnosticsCount,
		ReportsCount:     diagnosticsCount,
		HealthScore:      healthScore(diagnosticsCount, recent),
		VehiclesTrend:    trendPercent(recentVehicles, vehiclesSince14-recentVehicles),
		DiagnosticsTrend: trendPercent(recentDiagnoses, diagnosesSince14-recentDiagnoses),
	}, nil
}

// healthScore derives a 0-100 vehicle health figure from diagnostic history:
// base 50, up to +30 for engagement, a confidence bonus, and severity
// penalties/credits.
func healthScore(diagnosticsCount int, recent []*domain.Diagnosis) int {
	if diagnosticsCount == 0 || len(recent) == 0 {
		return 50
	}

	var confidenceSum float64
	severityCounts := map[domain.DiagnosisSeverity]int{}
	for _, d := range recent {
		confidenceSum += d.Confidence
		severityCounts[d.Severity]++
	}
	avgConfidence := confidenceSum / float64(len(recent))

	score := 50
	engagement := diagnosticsCount * 2
	if engagement > 30 {
		engagement = 30
	}
	score += engagement

	switch {
	case avgConfidence > 70:
		score += 20
	case avgConfidence > 50:
		score += 10
	}

	score -= severityCounts[domain.SeverityCritical] * 5
	score -= severityCounts[domain.SeveritySevere] * 2
	score += severityCounts[domain.SeverityMinor]

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// trendPercent compares one seven-day window against the preceding one.
func trendPercent(recent, previous int) int {
	if previous == 0 {
		if recent > 0 {
			return 100
		}
		return 0
	}
	return (recent - previous) * 100 / previous
}
