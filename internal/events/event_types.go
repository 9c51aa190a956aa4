package events

import (
	"time"

	"github.com/fixmycar/diagnostic-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventUserLoggedIn       EventType = "user_logged_in"
	EventDiagnosisCompleted EventType = "diagnosis_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Method string      `json:"method"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Method string      `json:"method"`
}

// DiagnosisCompletedPayload payload.
type DiagnosisCompletedPayload struct {
	DiagnosisID string                   `json:"diagnosis_id"`
	Category    string                   `json:"category"`
	Severity    domain.DiagnosisSeverity `json:"severity"`
	Urgency     string                   `json:"urgency"`
	Confidence  float64                  `json:"confidence"`
}
