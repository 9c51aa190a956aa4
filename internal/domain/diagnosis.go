package domain

import "time"

// DiagnosisSeverity mirrors the severity scale emitted by the prediction model.
type DiagnosisSeverity string

const (
	SeverityMinor    DiagnosisSeverity = "minor"
	SeverityModerate DiagnosisSeverity = "moderate"
	SeveritySevere   DiagnosisSeverity = "severe"
	SeverityCritical DiagnosisSeverity = "critical"
)

// Diagnosis is a stored prediction result for a user's vehicle problem.
type Diagnosis struct {
	ID           string
	UserID       string
	VehicleBrand string
	VehicleModel string
	Category     string
	Result       string
	PartInvolved string
	Severity     DiagnosisSeverity
	Urgency      string
	RepairAction string
	CostMin      float64
	CostMax      float64
	Confidence   float64
	CreatedAt    time.Time
}
