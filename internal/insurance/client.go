// Package insurance calls the national insurance verification gateway to
// check a patient's coverage by Emirates ID.
package insurance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amanahealth/clinic-concierge/internal/actions"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

const defaultHTTPTimeout = 10 * time.Second

// Client verifies insurance coverage against the external gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

var _ actions.InsuranceVerifier = (*Client)(nil)

// NewClient creates a verification client.
func NewClient(baseURL, apiKey string, logger *logging.Logger) *Client {
	if baseURL == "" {
		panic("insurance: base URL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

type verifyRequest struct {
	EmiratesID string `json:"emirates_id"`
	PatientRef string `json:"patient_ref,omitempty"`
}

type verifyResponse struct {
	Status     string `json:"status"` // active, expired, inactive, not_found
	Provider   string `json:"provider,omitempty"`
	PlanName   string `json:"plan_name,omitempty"`
	MemberID   string `json:"member_id,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Verify checks coverage for the given Emirates ID. An unknown ID is a
// successful lookup with status "not_found", not an error.
func (c *Client) Verify(ctx context.Context, userID, emiratesID string) (*actions.InsuranceStatus, error) {
	payload, err := json.Marshal(verifyRequest{EmiratesID: emiratesID, PatientRef: userID})
	if err != nil {
		return nil, fmt.Errorf("insurance: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("insurance: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("insurance: verification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("insurance: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("insurance: gateway error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed verifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("insurance: failed to decode response: %w", err)
	}

	switch parsed.Status {
	case "active", "expired", "inactive", "not_found":
	default:
		return nil, fmt.Errorf("insurance: unexpected status %q", parsed.Status)
	}

	c.logger.Debug("insurance verified", "status", parsed.Status, "provider", parsed.Provider)

	return &actions.InsuranceStatus{
		Status:     parsed.Status,
		Provider:   parsed.Provider,
		PlanName:   parsed.PlanName,
		MemberID:   parsed.MemberID,
		ExpiryDate: parsed.ExpiryDate,
		Reason:     parsed.Reason,
	}, nil
}
