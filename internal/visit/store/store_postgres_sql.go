package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"

	"github.com/google/uuid"
)

// anomalyRow is the JSONB shape for the anomalies column.
type anomalyRow struct {
	Code       string     `json:"code"`
	Detail     string     `json:"detail"`
	RecordedAt time.Time  `json:"recordedAt"`
	Resolved   bool       `json:"resolved"`
	Note       string     `json:"note,omitempty"`
	ResolvedBy string     `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

func marshalAnomalies(anomalies []models.AnomalyFlag) ([]byte, error) {
	rows := make([]anomalyRow, 0, len(anomalies))
	for _, a := range anomalies {
		row := anomalyRow{
			Code:       a.Code.String(),
			Detail:     a.Detail,
			RecordedAt: a.RecordedAt,
			Resolved:   a.Resolved,
			Note:       a.ResolutionNote,
		}
		if !a.ResolvedBy.IsNil() {
			row.ResolvedBy = a.ResolvedBy.String()
		}
		if !a.ResolvedAt.IsZero() {
			t := a.ResolvedAt
			row.ResolvedAt = &t
		}
		rows = append(rows, row)
	}
	return json.Marshal(rows)
}

func unmarshalAnomalies(raw []byte) ([]models.AnomalyFlag, error) {
	var rows []anomalyRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal anomalies: %w", err)
	}
	var out []models.AnomalyFlag
	for _, row := range rows {
		code, err := id.ParseAnomalyCode(row.Code)
		if err != nil {
			return nil, err
		}
		flag := models.AnomalyFlag{
			Code:           code,
			Detail:         row.Detail,
			RecordedAt:     row.RecordedAt,
			Resolved:       row.Resolved,
			ResolutionNote: row.Note,
		}
		if row.ResolvedBy != "" {
			actor, err := id.ParseActorID(row.ResolvedBy)
			if err != nil {
				return nil, err
			}
			flag.ResolvedBy = actor
		}
		if row.ResolvedAt != nil {
			flag.ResolvedAt = *row.ResolvedAt
		}
		out = append(out, flag)
	}
	return out, nil
}

func visitArgs(record *models.VisitRecord) ([]any, error) {
	anomalies, err := marshalAnomalies(record.Anomalies)
	if err != nil {
		return nil, fmt.Errorf("marshal anomalies: %w", err)
	}

	var caregiverID, resolvedBy any
	if !record.CaregiverID.IsNil() {
		caregiverID = record.CaregiverID.String()
	}
	if !record.ResolvedBy.IsNil() {
		resolvedBy = record.ResolvedBy.String()
	}

	return []any{
		record.ID.String(),
		record.OrgID.String(),
		record.BranchID.String(),
		record.ClientID.String(),
		caregiverID,
		record.Schedule.ServiceDate,
		record.Schedule.StartTime,
		record.Schedule.EndTime,
		int64(record.Schedule.Duration.Minutes()),
		record.Address.Street,
		record.Address.City,
		record.Address.Region,
		record.Address.PostalCode,
		record.Address.Latitude,
		record.Address.Longitude,
		record.Address.GeofenceRadiusMeters,
		record.ActualStart,
		record.ActualEnd,
		int64(record.ActualDuration.Minutes()),
		record.AddressVerified,
		record.Status.String(),
		anomalies,
		record.ResolutionNote,
		resolvedBy,
		record.Overridden,
		record.IntegrityHash,
		record.PreviousHash,
		record.Signature,
		record.Version,
		record.CreatedAt,
		record.UpdatedAt,
	}, nil
}

func placeholders(n int) string {
	out := "("
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += fmt.Sprintf("$%d", i)
	}
	return out + ")"
}

func insertVisit(ctx context.Context, q dbQuerier, prefix string, record *models.VisitRecord) error {
	args, err := visitArgs(record)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, prefix+placeholders(len(args)), args...)
	return err
}

func updateVisit(ctx context.Context, q dbQuerier, record *models.VisitRecord, expectedVersion int64) (sql.Result, error) {
	args, err := visitArgs(record)
	if err != nil {
		return nil, err
	}
	args = append(args, expectedVersion)
	return q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE visits SET
			caregiver_id = $5,
			service_date = $6, start_time = $7, end_time = $8, scheduled_mins = $9,
			street = $10, city = $11, region = $12, postal_code = $13,
			latitude = $14, longitude = $15, radius_meters = $16,
			actual_start = $17, actual_end = $18, actual_mins = $19, address_verified = $20,
			status = $21, anomalies = $22, resolution_note = $23, resolved_by = $24, overridden = $25,
			integrity_hash = $26, previous_hash = $27, signature = $28,
			version = $29, created_at = $30, updated_at = $31
		WHERE id = $1 AND version = $%d
	`, len(args)), args...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*models.VisitRecord, error) {
	var (
		record                         models.VisitRecord
		visitID, orgID, branch, client string
		caregiverID, resolvedBy        sql.NullString
		startTime, endTime, status     string
		scheduledMins, actualMins      int64
		latitude, longitude            sql.NullFloat64
		actualStart, actualEnd         sql.NullTime
		anomalies                      []byte
	)

	err := row.Scan(
		&visitID, &orgID, &branch, &client, &caregiverID,
		&record.Schedule.ServiceDate, &startTime, &endTime, &scheduledMins,
		&record.Address.Street, &record.Address.City, &record.Address.Region,
		&record.Address.PostalCode, &latitude, &longitude, &record.Address.GeofenceRadiusMeters,
		&actualStart, &actualEnd, &actualMins, &record.AddressVerified,
		&status, &anomalies, &record.ResolutionNote, &resolvedBy, &record.Overridden,
		&record.IntegrityHash, &record.PreviousHash, &record.Signature,
		&record.Version, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ID = id.VisitID(uuid.MustParse(visitID))
	record.OrgID = id.OrgID(uuid.MustParse(orgID))
	record.BranchID = id.BranchID(uuid.MustParse(branch))
	record.ClientID = id.ClientID(uuid.MustParse(client))
	if caregiverID.Valid {
		record.CaregiverID = id.CaregiverID(uuid.MustParse(caregiverID.String))
	}
	if resolvedBy.Valid {
		record.ResolvedBy = id.ActorID(uuid.MustParse(resolvedBy.String))
	}
	record.Schedule.StartTime = startTime
	record.Schedule.EndTime = endTime
	record.Schedule.Duration = time.Duration(scheduledMins) * time.Minute
	record.ActualDuration = time.Duration(actualMins) * time.Minute
	if latitude.Valid {
		lat := latitude.Float64
		record.Address.Latitude = &lat
	}
	if longitude.Valid {
		lng := longitude.Float64
		record.Address.Longitude = &lng
	}
	if actualStart.Valid {
		t := actualStart.Time
		record.ActualStart = &t
	}
	if actualEnd.Valid {
		t := actualEnd.Time
		record.ActualEnd = &t
	}
	parsedStatus, err := id.ParseVisitStatus(status)
	if err != nil {
		return nil, err
	}
	record.Status = parsedStatus
	record.Anomalies, err = unmarshalAnomalies(anomalies)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func scanVisits(rows *sql.Rows) ([]*models.VisitRecord, error) {
	var out []*models.VisitRecord
	for rows.Next() {
		record, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
