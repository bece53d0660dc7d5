package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caretrail/internal/gateway"
	"caretrail/internal/verification/geofence"
	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"
	"caretrail/pkg/platform/audit"
	"caretrail/pkg/platform/sentinel"
)

// CheckIn records the caregiver's arrival. Valid from SCHEDULED, or from
// FLAGGED as a supervised retry. A fix outside the geofence (or an
// unverifiable one) never blocks the transition; it clears AddressVerified
// and appends an anomaly flag instead, which later blocks automatic
// verification.
func (e *Engine) CheckIn(ctx context.Context, visitID id.VisitID, fix *models.LocationFix, timestamp time.Time) (*models.VisitRecord, error) {
	if timestamp.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "visit %s: check-in timestamp is required", visitID)
	}

	if err := e.hydrate(ctx, visitID); err != nil {
		return nil, err
	}

	var anomalies []anomalyNote
	saved, err := e.mutate(ctx, visitID, "check_in", func(record *models.VisitRecord) error {
		anomalies = anomalies[:0]
		if !record.Status.CanTransitionTo(id.StatusCheckedIn) {
			return invalidTransition(record, "check_in")
		}

		if record.Status == id.StatusFlagged && record.ActualEnd != nil {
			// Supervised retry after a completed-but-flagged visit: the
			// event arrives out of lifecycle order, so the restart itself
			// is flagged for the reviewer.
			record.AppendAnomaly(id.AnomalyOutOfOrderEvent,
				fmt.Sprintf("check-in retry at %s after check-out at %s",
					timestamp.UTC().Format(time.RFC3339), record.ActualEnd.UTC().Format(time.RFC3339)),
				timestamp)
			anomalies = append(anomalies, anomalyNote{id.AnomalyOutOfOrderEvent, "check-in retry after check-out"})
			record.ActualEnd = nil
			record.ActualDuration = 0
		}

		anomalies = append(anomalies, e.applyGeofence(record, fix, timestamp)...)

		ts := timestamp
		record.ActualStart = &ts
		record.Status = id.StatusCheckedIn
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range anomalies {
		e.metrics.IncrementAnomaly(string(a.code))
		e.audit(ctx, audit.EventAnomalyRecorded, saved, a.detail)
	}
	e.audit(ctx, audit.EventVisitCheckedIn, saved, "")
	return saved, nil
}

type anomalyNote struct {
	code   id.AnomalyCode
	detail string
}

// applyGeofence classifies the fix and applies the soft-fail policy:
// anything but a clean within-tolerance result clears AddressVerified and
// records an anomaly, but never rejects the operation.
func (e *Engine) applyGeofence(record *models.VisitRecord, fix *models.LocationFix, at time.Time) []anomalyNote {
	result := e.geofence.Validate(fix, record.Address)
	switch result.Outcome {
	case geofence.OutcomeWithinTolerance:
		record.AddressVerified = true
		return nil
	case geofence.OutcomeOutsideTolerance:
		detail := fmt.Sprintf("fix %.0fm from address, tolerance %.0fm", result.DistanceMeters, result.RadiusMeters)
		record.AddressVerified = false
		record.AppendAnomaly(id.AnomalyGeofenceOutside, detail, at)
		return []anomalyNote{{id.AnomalyGeofenceOutside, detail}}
	default:
		detail := "location fix or address coordinates missing"
		record.AddressVerified = false
		record.AppendAnomaly(id.AnomalyGeofenceUnverifiable, detail, at)
		return []anomalyNote{{id.AnomalyGeofenceUnverifiable, detail}}
	}
}

// hydrate materializes the visit from the scheduling collaborator when the
// store has never seen it. Caregiver data is reference-only and its absence
// tolerated; scheduling is authoritative and its absence is not.
func (e *Engine) hydrate(ctx context.Context, visitID id.VisitID) error {
	_, err := e.store.Load(ctx, visitID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	if e.scheduling == nil {
		return dErrors.Wrap(dErrors.CodeNotFound, err, "visit %s", visitID)
	}

	visitData, err := e.scheduling.GetVisitData(ctx, visitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(dErrors.CodeNotFound, err, "visit %s has no scheduling assignment", visitID)
		}
		return err
	}

	record := recordFromVisitData(visitData)
	if e.caregivers != nil && !visitData.CaregiverID.IsNil() {
		// Reference data only; the visit is workable without it.
		if _, err := e.caregivers.GetCaregiverData(ctx, visitData.CaregiverID); err != nil && e.logger != nil {
			e.logger.WarnContext(ctx, "caregiver lookup failed during hydration",
				"visit_id", visitID.String(), "error", err)
		}
	}

	if _, err := e.commit(ctx, record); err != nil {
		// A concurrent hydration already created it; that copy wins.
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return err
	}
	return nil
}

func recordFromVisitData(data *gateway.VisitData) *models.VisitRecord {
	return &models.VisitRecord{
		ID:          data.VisitID,
		OrgID:       data.OrgID,
		BranchID:    data.BranchID,
		ClientID:    data.ClientID,
		CaregiverID: data.CaregiverID,
		Schedule: models.Schedule{
			ServiceDate: data.ServiceDate,
			StartTime:   data.ScheduledStart,
			EndTime:     data.ScheduledEnd,
			Duration:    time.Duration(data.ScheduledMinutes) * time.Minute,
		},
		Address: models.Address{
			Street:               data.Street,
			City:                 data.City,
			Region:               data.Region,
			PostalCode:           data.PostalCode,
			Latitude:             data.Latitude,
			Longitude:            data.Longitude,
			GeofenceRadiusMeters: data.RadiusMeters,
		},
		Status: id.StatusScheduled,
	}
}
