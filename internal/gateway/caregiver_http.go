package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "caretrail/pkg/domain-errors"
	id "caretrail/pkg/domain"
	"caretrail/pkg/platform/sentinel"
)

// CaregiverHTTP is an HTTP adapter for the caregiver registry:
// GET {baseURL}/v1/caregivers/{id}.
type CaregiverHTTP struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCaregiverHTTP(baseURL, apiKey string, timeout time.Duration) *CaregiverHTTP {
	return &CaregiverHTTP{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type caregiverDataResponse struct {
	CaregiverID    string `json:"caregiver_id"`
	FullName       string `json:"full_name"`
	EmployeeNumber string `json:"employee_number"`
	LicenseNumber  string `json:"license_number,omitempty"`
	Active         bool   `json:"active"`
	CheckedAt      string `json:"checked_at,omitempty"`
}

func (c *CaregiverHTTP) GetCaregiverData(ctx context.Context, caregiverID id.CaregiverID) (*CaregiverData, error) {
	url := fmt.Sprintf("%s/v1/caregivers/%s", c.baseURL, caregiverID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "build caregiver request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caregiver lookup: %w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("caregiver lookup: %w: %v", sentinel.ErrUnavailable, err)
	}
	return parseCaregiverResponse(resp.StatusCode, body)
}

func parseCaregiverResponse(status int, body []byte) (*CaregiverData, error) {
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("caregiver record: %w", sentinel.ErrNotFound)
	case status >= 500:
		return nil, fmt.Errorf("caregiver registry returned %d: %w", status, sentinel.ErrUnavailable)
	case status != http.StatusOK:
		return nil, dErrors.New(dErrors.CodeInternal, "caregiver registry returned unexpected status %d", status)
	}

	var wire caregiverDataResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "decode caregiver response")
	}

	caregiverID, err := id.ParseCaregiverID(wire.CaregiverID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "caregiver response caregiver_id")
	}

	checkedAt := time.Now().UTC()
	if wire.CheckedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, wire.CheckedAt); err == nil {
			checkedAt = parsed
		}
	}

	return &CaregiverData{
		CaregiverID:    caregiverID,
		FullName:       wire.FullName,
		EmployeeNumber: wire.EmployeeNumber,
		LicenseNumber:  wire.LicenseNumber,
		Active:         wire.Active,
		CheckedAt:      checkedAt,
	}, nil
}
