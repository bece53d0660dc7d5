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

// SchedulingHTTP is an HTTP adapter for the scheduling system's visit
// lookup endpoint: GET {baseURL}/v1/visits/{id}.
type SchedulingHTTP struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSchedulingHTTP(baseURL, apiKey string, timeout time.Duration) *SchedulingHTTP {
	return &SchedulingHTTP{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// visitDataResponse is the wire shape of the scheduling endpoint.
type visitDataResponse struct {
	VisitID          string   `json:"visit_id"`
	OrgID            string   `json:"org_id"`
	BranchID         string   `json:"branch_id"`
	ClientID         string   `json:"client_id"`
	CaregiverID      string   `json:"caregiver_id"`
	ClientName       string   `json:"client_name"`
	Street           string   `json:"street"`
	City             string   `json:"city"`
	Region           string   `json:"region"`
	PostalCode       string   `json:"postal_code"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	RadiusMeters     float64  `json:"radius_meters"`
	ServiceDate      string   `json:"service_date"` // YYYY-MM-DD
	ScheduledStart   string   `json:"scheduled_start"`
	ScheduledEnd     string   `json:"scheduled_end"`
	ScheduledMinutes int      `json:"scheduled_minutes"`
}

func (s *SchedulingHTTP) GetVisitData(ctx context.Context, visitID id.VisitID) (*VisitData, error) {
	url := fmt.Sprintf("%s/v1/visits/%s", s.baseURL, visitID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "build scheduling request")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scheduling lookup: %w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("scheduling lookup: %w: %v", sentinel.ErrUnavailable, err)
	}
	return parseVisitDataResponse(resp.StatusCode, body)
}

func parseVisitDataResponse(status int, body []byte) (*VisitData, error) {
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("visit assignment: %w", sentinel.ErrNotFound)
	case status >= 500:
		return nil, fmt.Errorf("scheduling returned %d: %w", status, sentinel.ErrUnavailable)
	case status != http.StatusOK:
		return nil, dErrors.New(dErrors.CodeInternal, "scheduling returned unexpected status %d", status)
	}

	var wire visitDataResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "decode scheduling response")
	}

	visitID, err := id.ParseVisitID(wire.VisitID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "scheduling response visit_id")
	}
	orgID, err := id.ParseOrgID(wire.OrgID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "scheduling response org_id")
	}
	branchID, err := id.ParseBranchID(wire.BranchID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "scheduling response branch_id")
	}
	clientID, err := id.ParseClientID(wire.ClientID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "scheduling response client_id")
	}
	// Unassigned visits come back without a caregiver.
	var caregiverID id.CaregiverID
	if wire.CaregiverID != "" {
		caregiverID, err = id.ParseCaregiverID(wire.CaregiverID)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, err, "scheduling response caregiver_id")
		}
	}
	serviceDate, err := time.Parse("2006-01-02", wire.ServiceDate)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, err, "scheduling response service_date")
	}

	return &VisitData{
		VisitID:          visitID,
		OrgID:            orgID,
		BranchID:         branchID,
		ClientID:         clientID,
		CaregiverID:      caregiverID,
		ClientName:       wire.ClientName,
		Street:           wire.Street,
		City:             wire.City,
		Region:           wire.Region,
		PostalCode:       wire.PostalCode,
		Latitude:         wire.Latitude,
		Longitude:        wire.Longitude,
		RadiusMeters:     wire.RadiusMeters,
		ServiceDate:      serviceDate,
		ScheduledStart:   wire.ScheduledStart,
		ScheduledEnd:     wire.ScheduledEnd,
		ScheduledMinutes: wire.ScheduledMinutes,
	}, nil
}
