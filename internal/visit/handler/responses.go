package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"caretrail/internal/visit/models"
	dErrors "caretrail/pkg/domain-errors"
	"caretrail/pkg/platform/sentinel"
)

// presenceEventRequest is the body for check-in and check-out. The fix is
// optional: a device without GPS still checks in, the record just gets an
// unverifiable-geofence flag.
type presenceEventRequest struct {
	Timestamp string   `json:"timestamp"` // RFC 3339
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (r presenceEventRequest) parse() (time.Time, *models.LocationFix, error) {
	if r.Timestamp == "" {
		return time.Time{}, nil, dErrors.New(dErrors.CodeBadRequest, "timestamp is required")
	}
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}, nil, dErrors.Wrap(dErrors.CodeBadRequest, err, "invalid timestamp %q", r.Timestamp)
	}

	var fix *models.LocationFix
	if r.Latitude != nil && r.Longitude != nil {
		fix = &models.LocationFix{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return ts, fix, nil
}

type resolveRequest struct {
	TargetStatus   string `json:"target_status"` // VERIFIED or CLOSED
	ResolutionNote string `json:"resolution_note"`
}

// visitResponse is the HTTP view of a visit record.
type visitResponse struct {
	VisitID     string `json:"visit_id"`
	OrgID       string `json:"org_id"`
	BranchID    string `json:"branch_id"`
	ClientID    string `json:"client_id"`
	CaregiverID string `json:"caregiver_id,omitempty"`

	ServiceDate      string `json:"service_date"`
	ScheduledStart   string `json:"scheduled_start"`
	ScheduledEnd     string `json:"scheduled_end"`
	ScheduledMinutes int    `json:"scheduled_minutes"`

	ActualStart   *time.Time `json:"actual_start,omitempty"`
	ActualEnd     *time.Time `json:"actual_end,omitempty"`
	ActualMinutes int        `json:"actual_minutes"`

	Status          string            `json:"status"`
	AddressVerified bool              `json:"address_verified"`
	Anomalies       []anomalyResponse `json:"anomalies,omitempty"`

	ResolutionNote string `json:"resolution_note,omitempty"`
	Overridden     bool   `json:"overridden,omitempty"`

	IntegrityHash string `json:"integrity_hash"`
	PreviousHash  string `json:"previous_hash"`
	Version       int64  `json:"version"`

	UpdatedAt time.Time `json:"updated_at"`
}

type anomalyResponse struct {
	Code       string    `json:"code"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
	Resolved   bool      `json:"resolved"`
}

func fromRecord(record *models.VisitRecord) *visitResponse {
	resp := &visitResponse{
		VisitID:          record.ID.String(),
		OrgID:            record.OrgID.String(),
		BranchID:         record.BranchID.String(),
		ClientID:         record.ClientID.String(),
		ServiceDate:      record.Schedule.ServiceDate.Format("2006-01-02"),
		ScheduledStart:   record.Schedule.StartTime,
		ScheduledEnd:     record.Schedule.EndTime,
		ScheduledMinutes: int(record.Schedule.Duration.Minutes()),
		ActualStart:      record.ActualStart,
		ActualEnd:        record.ActualEnd,
		ActualMinutes:    int(record.ActualDuration.Minutes()),
		Status:           record.Status.String(),
		AddressVerified:  record.AddressVerified,
		ResolutionNote:   record.ResolutionNote,
		Overridden:       record.Overridden,
		IntegrityHash:    record.IntegrityHash,
		PreviousHash:     record.PreviousHash,
		Version:          record.Version,
		UpdatedAt:        record.UpdatedAt,
	}
	if !record.CaregiverID.IsNil() {
		resp.CaregiverID = record.CaregiverID.String()
	}
	for _, a := range record.Anomalies {
		resp.Anomalies = append(resp.Anomalies, anomalyResponse{
			Code:       string(a.Code),
			Detail:     a.Detail,
			RecordedAt: a.RecordedAt,
			Resolved:   a.Resolved,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so
// every handler answers with the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	// Infrastructure sentinels that reach this layer unwrapped.
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		code, status = dErrors.CodeNotFound, http.StatusNotFound
	case errors.Is(err, sentinel.ErrConflict):
		code, status = dErrors.CodeConflict, http.StatusConflict
	case errors.Is(err, sentinel.ErrUnavailable):
		code, status = dErrors.CodeUnavailable, http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}
