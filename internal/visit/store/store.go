// Package store persists visit records with optimistic concurrency and an
// append-only version history. Corrections never overwrite: every
// successful save moves the previous version into history.
package store

import (
	"context"
	"time"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
)

// Store is the persistence contract consumed by the verification engine.
//
// Save rejects a write whose expectedVersion does not equal the stored
// version with sentinel.ErrConflict; the caller must reload and retry, not
// merge. UpdateVisitStatus and UpdateVisitTiming are convenience
// projections of Save for collaborators that only mirror status/timing and
// never run the verification flow; the engine itself always uses Save so
// the integrity chain stays under its control.
type Store interface {
	Load(ctx context.Context, visitID id.VisitID) (*models.VisitRecord, error)
	Save(ctx context.Context, record *models.VisitRecord, expectedVersion int64) (*models.VisitRecord, error)
	List(ctx context.Context, filter VisitFilter) ([]*models.VisitRecord, error)
	History(ctx context.Context, visitID id.VisitID) ([]*models.VisitRecord, error)

	UpdateVisitStatus(ctx context.Context, visitID id.VisitID, status id.VisitStatus, expectedVersion int64) (*models.VisitRecord, error)
	UpdateVisitTiming(ctx context.Context, visitID id.VisitID, actualStart, actualEnd *time.Time, expectedVersion int64) (*models.VisitRecord, error)
}

// VisitFilter selects visits by named optional fields. A nil field means
// "any"; there is deliberately no free-form map so a malformed filter fails
// to compile instead of silently matching nothing.
type VisitFilter struct {
	OrgID       *id.OrgID
	BranchID    *id.BranchID
	ClientID    *id.ClientID
	CaregiverID *id.CaregiverID
	Statuses    []id.VisitStatus

	// Service-date window, inclusive on both ends.
	ServiceDateFrom *time.Time
	ServiceDateTo   *time.Time
}

// Matches reports whether the record satisfies every set field.
func (f VisitFilter) Matches(record *models.VisitRecord) bool {
	if f.OrgID != nil && record.OrgID != *f.OrgID {
		return false
	}
	if f.BranchID != nil && record.BranchID != *f.BranchID {
		return false
	}
	if f.ClientID != nil && record.ClientID != *f.ClientID {
		return false
	}
	if f.CaregiverID != nil && record.CaregiverID != *f.CaregiverID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if record.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ServiceDateFrom != nil && record.Schedule.ServiceDate.Before(*f.ServiceDateFrom) {
		return false
	}
	if f.ServiceDateTo != nil && record.Schedule.ServiceDate.After(*f.ServiceDateTo) {
		return false
	}
	return true
}
