// Package mlclient talks to the external diagnosis prediction service. The
// model is opaque: payloads are forwarded and results consumed as-is.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fixmycar/diagnostic-service/internal/config"
)

// PredictRequest is the symptom/vehicle payload submitted for prediction.
type PredictRequest struct {
	Brand              string   `json:"brand"`
	Model              string   `json:"model"`
	Year               string   `json:"year"`
	CarType            string   `json:"carType"`
	FuelType           string   `json:"fuelType"`
	Transmission       string   `json:"transmission"`
	Mileage            string   `json:"mileage"`
	ProblemCategory    string   `json:"problemCategory"`
	ProblemSeverity    string   `json:"problemSeverity"`
	ProblemDuration    string   `json:"problemDuration"`
	ProblemFrequency   string   `json:"problemFrequency"`
	Symptoms           []string `json:"symptoms"`
	WarningLights      []string `json:"warningLights"`
	ProblemDescription string   `json:"problemDescription"`
	RecentMaintenance  string   `json:"recentMaintenance,omitempty"`
	AdditionalNotes    string   `json:"additionalNotes,omitempty"`
}

// Prediction is the diagnosis returned by the model.
type Prediction struct {
	SymptomsInput      []string `json:"symptoms_input"`
	WarningLightsInput []string `json:"warning_lights_input"`
	Category           string   `json:"category"`
	Diagnosis          string   `json:"diagnosis"`
	PartInvolved       string   `json:"part_involved"`
	Severity           string   `json:"severity"`
	Urgency            string   `json:"urgency"`
	RepairAction       string   `json:"repair_action"`
	EstimatedCostMin   float64  `json:"estimated_cost_min"`
	EstimatedCostMax   float64  `json:"estimated_cost_max"`
	Confidence         float64  `json:"confidence"`
	Description        string   `json:"description"`
}

type predictResponse struct {
	Success    bool        `json:"success"`
	Prediction *Prediction `json:"prediction"`
	Error      string      `json:"error,omitempty"`
}

// Client is an HTTP client for the prediction service.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client from diagnosis configuration.
func New(cfg config.DiagnosisConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

// Predict submits the form payload and returns the model's diagnosis.
func (c *Client) Predict(ctx context.Context, req *PredictRequest) (*Prediction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/diagnosis/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict: unexpected status %d", resp.StatusCode)
	}

	var parsed predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("predict: decode response: %w", err)
	}
	if !parsed.Success || parsed.Prediction == nil {
		return nil, fmt.Errorf("predict: model rejected payload: %s", parsed.Error)
	}
	return parsed.Prediction, nil
}

// FormData returns the model's raw form catalog (symptoms, warning lights,
// categories) for caching and pass-through.
func (c *Client) FormData(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, "/api/diagnosis/form-data")
}

// Categories returns the model's raw category/severity/urgency lists.
func (c *Client) Categories(ctx context.Context) ([]byte, error) {
	return c.getRaw(ctx, "/api/diagnosis/categories")
}

// Health checks the model's status endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
