// Package gateway defines the ports the visit engine uses to reach the
// scheduling system and the caregiver registry, plus thin HTTP adapters.
// The engine depends only on the interfaces here, so tests stub them and
// a future in-process wiring can replace the HTTP adapters without
// touching the visit domain.
package gateway

import (
	"context"
	"time"

	id "caretrail/pkg/domain"
)

// VisitData is the scheduling system's view of a visit: who, where, and
// when it is supposed to happen. Coordinates and radius are optional; a
// visit without them can still be worked, it just cannot be
// location-verified.
type VisitData struct {
	VisitID     id.VisitID
	OrgID       id.OrgID
	BranchID    id.BranchID
	ClientID    id.ClientID
	CaregiverID id.CaregiverID

	ClientName string
	Street     string
	City       string
	Region     string
	PostalCode string
	Latitude   *float64
	Longitude  *float64
	// RadiusMeters of 0 means "use the deployment default".
	RadiusMeters float64

	ServiceDate      time.Time
	ScheduledStart   string // "15:04", local to the deployment timezone
	ScheduledEnd     string
	ScheduledMinutes int
}

// CaregiverData is the registry's view of the person working the visit.
// LicenseNumber is empty for unlicensed roles.
type CaregiverData struct {
	CaregiverID    id.CaregiverID
	FullName       string
	EmployeeNumber string
	LicenseNumber  string
	Active         bool
	CheckedAt      time.Time
}

// Scheduling looks up visit assignments. Not-found and transient
// unavailability are distinguished by sentinel errors so callers can
// decide whether a retry makes sense.
type Scheduling interface {
	GetVisitData(ctx context.Context, visitID id.VisitID) (*VisitData, error)
}

// CaregiverRegistry looks up caregiver records. Absence of a caregiver
// is tolerated by the engine (the visit is still worked), so adapters
// return sentinel.ErrNotFound rather than inventing a record.
type CaregiverRegistry interface {
	GetCaregiverData(ctx context.Context, caregiverID id.CaregiverID) (*CaregiverData, error)
}
