package engine

import (
	"context"
	"fmt"
	"time"

	"caretrail/internal/verification/geofence"
	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"
	"caretrail/pkg/platform/audit"
)

// CheckOut records the caregiver's departure. Valid from CHECKED_IN or
// IN_PROGRESS. The geofence soft-fail policy from check-in applies here
// too. A timestamp before the recorded arrival is invalid input and is
// rejected before anything persists.
func (e *Engine) CheckOut(ctx context.Context, visitID id.VisitID, fix *models.LocationFix, timestamp time.Time) (*models.VisitRecord, error) {
	if timestamp.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "visit %s: check-out timestamp is required", visitID)
	}

	var anomalies []anomalyNote
	saved, err := e.mutate(ctx, visitID, "check_out", func(record *models.VisitRecord) error {
		anomalies = anomalies[:0]
		if !record.Status.CanTransitionTo(id.StatusCheckedOut) {
			return invalidTransition(record, "check_out")
		}
		if record.ActualStart == nil {
			return invalidTransition(record, "check_out")
		}
		if timestamp.Before(*record.ActualStart) {
			return dErrors.New(dErrors.CodeBadRequest,
				"visit %s: check-out at %s precedes check-in at %s",
				record.ID, timestamp.UTC().Format(time.RFC3339), record.ActualStart.UTC().Format(time.RFC3339))
		}

		// Only clear AddressVerified on a bad fix; a clean check-out does
		// not retroactively verify a flagged arrival, and a flagged
		// departure must not be masked by a clean arrival.
		if notes := e.applyGeofenceDeparture(record, fix, timestamp); len(notes) > 0 {
			anomalies = append(anomalies, notes...)
		}

		ts := timestamp
		record.ActualEnd = &ts
		record.ActualDuration = ts.Sub(*record.ActualStart)
		record.Status = id.StatusCheckedOut
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range anomalies {
		e.metrics.IncrementAnomaly(string(a.code))
		e.audit(ctx, audit.EventAnomalyRecorded, saved, a.detail)
	}
	e.audit(ctx, audit.EventVisitCheckedOut, saved, "")
	return saved, nil
}

// applyGeofenceDeparture mirrors applyGeofence but leaves AddressVerified
// untouched on a clean result: arrival verification stands on its own.
func (e *Engine) applyGeofenceDeparture(record *models.VisitRecord, fix *models.LocationFix, at time.Time) []anomalyNote {
	result := e.geofence.Validate(fix, record.Address)
	switch result.Outcome {
	case geofence.OutcomeWithinTolerance:
		return nil
	case geofence.OutcomeOutsideTolerance:
		detail := fmt.Sprintf("departure fix %.0fm from address, tolerance %.0fm", result.DistanceMeters, result.RadiusMeters)
		record.AddressVerified = false
		record.AppendAnomaly(id.AnomalyGeofenceOutside, detail, at)
		return []anomalyNote{{id.AnomalyGeofenceOutside, detail}}
	default:
		detail := "departure location fix or address coordinates missing"
		record.AddressVerified = false
		record.AppendAnomaly(id.AnomalyGeofenceUnverifiable, detail, at)
		return []anomalyNote{{id.AnomalyGeofenceUnverifiable, detail}}
	}
}
