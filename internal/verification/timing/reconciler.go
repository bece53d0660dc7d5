// Package timing reconciles a visit's actual timestamps against its
// scheduled window and classifies duration variance.
//
// Scheduled time-of-day is anchored to the service date in one fixed
// location configured per deployment (EVV_TIMEZONE). This is a deliberate
// policy: a branch operates in a single regulatory jurisdiction, so the
// anchor never varies per call.
package timing

import (
	"time"

	"caretrail/internal/visit/models"
	dErrors "caretrail/pkg/domain-errors"
)

// Result carries the reconciled window and the variance classification.
type Result struct {
	ScheduledStart    time.Time
	ScheduledEnd      time.Time
	ScheduledDuration time.Duration
	ActualDuration    time.Duration

	VarianceMinutes float64
	VariancePercent float64

	// WithinPolicy requires BOTH thresholds satisfied; exceeding either one
	// marks the visit for duration-variance review.
	WithinPolicy bool
}

// Reconciler applies the configured variance thresholds.
type Reconciler struct {
	loc            *time.Location
	maxVariance    time.Duration
	maxVariancePct float64
}

// NewReconciler builds a reconciler anchored to the named location.
func NewReconciler(timezone string, maxVariance time.Duration, maxVariancePct float64) (*Reconciler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeBadRequest, err, "invalid timezone %q", timezone)
	}
	return &Reconciler{
		loc:            loc,
		maxVariance:    maxVariance,
		maxVariancePct: maxVariancePct,
	}, nil
}

// Location exposes the anchor so callers can normalize display output.
func (r *Reconciler) Location() *time.Location { return r.loc }

// Reconcile combines the schedule with actuals and classifies the variance.
// An actual end before the actual start is a hard invalid-input error and
// can never be classified as within policy.
func (r *Reconciler) Reconcile(schedule models.Schedule, actualStart, actualEnd time.Time) (Result, error) {
	if actualStart.IsZero() || actualEnd.IsZero() {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "actual start and end are required")
	}
	if actualEnd.Before(actualStart) {
		return Result{}, dErrors.New(dErrors.CodeBadRequest,
			"actual end %s precedes actual start %s", actualEnd.Format(time.RFC3339), actualStart.Format(time.RFC3339))
	}

	scheduledStart, err := r.Anchor(schedule.ServiceDate, schedule.StartTime)
	if err != nil {
		return Result{}, err
	}
	scheduledEnd, err := r.Anchor(schedule.ServiceDate, schedule.EndTime)
	if err != nil {
		return Result{}, err
	}
	// Overnight window: an end time-of-day at or before the start rolls to
	// the next calendar day.
	if !scheduledEnd.After(scheduledStart) {
		scheduledEnd = scheduledEnd.AddDate(0, 0, 1)
	}

	scheduledDuration := schedule.Duration
	if scheduledDuration <= 0 {
		scheduledDuration = scheduledEnd.Sub(scheduledStart)
	}
	if scheduledDuration <= 0 {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "scheduled duration must be positive")
	}

	actualDuration := actualEnd.Sub(actualStart)

	variance := actualDuration - scheduledDuration
	if variance < 0 {
		variance = -variance
	}

	varianceMinutes := variance.Minutes()
	variancePercent := variance.Minutes() / scheduledDuration.Minutes()

	return Result{
		ScheduledStart:    scheduledStart,
		ScheduledEnd:      scheduledEnd,
		ScheduledDuration: scheduledDuration,
		ActualDuration:    actualDuration,
		VarianceMinutes:   varianceMinutes,
		VariancePercent:   variancePercent,
		WithinPolicy:      variance <= r.maxVariance && variancePercent <= r.maxVariancePct,
	}, nil
}

// Anchor combines a service date with an "HH:MM" time-of-day in the
// configured location.
func (r *Reconciler) Anchor(serviceDate time.Time, timeOfDay string) (time.Time, error) {
	tod, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, dErrors.Wrap(dErrors.CodeBadRequest, err, "invalid time-of-day %q", timeOfDay)
	}
	return time.Date(
		serviceDate.Year(), serviceDate.Month(), serviceDate.Day(),
		tod.Hour(), tod.Minute(), 0, 0,
		r.loc,
	), nil
}
