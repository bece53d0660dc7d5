package models

import (
	"time"

	id "caretrail/pkg/domain"
)

// Address is the service location a visit must be delivered at. Coordinates
// come from the platform's geocoder; GeofenceRadiusMeters defines the
// tolerance circle a location fix must land in.
type Address struct {
	Street     string
	City       string
	Region     string
	PostalCode string

	Latitude  *float64
	Longitude *float64
	// GeofenceRadiusMeters must be > 0 wherever AddressVerified is
	// meaningful; the scheduling system sets it per address.
	GeofenceRadiusMeters float64
}

// HasCoordinates reports whether a geofence check is possible at all.
func (a Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// LocationFix is a single GPS reading captured at check-in or check-out.
type LocationFix struct {
	Latitude  float64
	Longitude float64
}

// Schedule is the planned service window. StartTime/EndTime are
// time-of-day strings ("15:04"); ServiceDate anchors them to a calendar
// day in the deployment's configured location.
type Schedule struct {
	ServiceDate time.Time
	StartTime   string
	EndTime     string
	Duration    time.Duration
}

// AnomalyFlag records a soft anomaly. Unresolved flags block automatic
// progression to VERIFIED but never block care delivery itself.
type AnomalyFlag struct {
	Code       id.AnomalyCode
	Detail     string
	RecordedAt time.Time

	Resolved       bool
	ResolutionNote string
	ResolvedBy     id.ActorID
	ResolvedAt     time.Time
}

// VisitRecord is the aggregate root for EVV. Mutated exclusively through
// the verification engine; corrections append versions, never overwrite.
type VisitRecord struct {
	// Identity
	ID          id.VisitID
	OrgID       id.OrgID
	BranchID    id.BranchID
	ClientID    id.ClientID
	CaregiverID id.CaregiverID // optional until assignment

	Schedule Schedule
	Address  Address

	// Actuals, set by check-in/check-out
	ActualStart     *time.Time
	ActualEnd       *time.Time
	ActualDuration  time.Duration
	AddressVerified bool

	// Lifecycle
	Status    id.VisitStatus
	Anomalies []AnomalyFlag

	// Resolution, set when a reviewer leaves FLAGGED
	ResolutionNote string
	ResolvedBy     id.ActorID
	Overridden     bool // VERIFIED via reviewer override rather than clean automatic pass

	// Integrity chain
	IntegrityHash string
	PreviousHash  string
	Signature     string // keyed signature; empty when no secret is configured

	// Version is the optimistic-concurrency token; strictly +1 per commit.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UnresolvedAnomalies returns the flags still blocking automatic VERIFIED.
func (v *VisitRecord) UnresolvedAnomalies() []AnomalyFlag {
	var open []AnomalyFlag
	for _, a := range v.Anomalies {
		if !a.Resolved {
			open = append(open, a)
		}
	}
	return open
}

// AppendAnomaly records a new soft anomaly.
func (v *VisitRecord) AppendAnomaly(code id.AnomalyCode, detail string, at time.Time) {
	v.Anomalies = append(v.Anomalies, AnomalyFlag{
		Code:       code,
		Detail:     detail,
		RecordedAt: at,
	})
}

// ResolveAnomalies marks every open flag resolved with the reviewer's note.
func (v *VisitRecord) ResolveAnomalies(note string, by id.ActorID, at time.Time) {
	for i := range v.Anomalies {
		if !v.Anomalies[i].Resolved {
			v.Anomalies[i].Resolved = true
			v.Anomalies[i].ResolutionNote = note
			v.Anomalies[i].ResolvedBy = by
			v.Anomalies[i].ResolvedAt = at
		}
	}
}

// Clone makes a deep copy so history snapshots and concurrent readers never
// alias the live record's anomaly slice.
func (v *VisitRecord) Clone() *VisitRecord {
	if v == nil {
		return nil
	}
	out := *v
	out.Anomalies = append([]AnomalyFlag(nil), v.Anomalies...)
	if v.ActualStart != nil {
		t := *v.ActualStart
		out.ActualStart = &t
	}
	if v.ActualEnd != nil {
		t := *v.ActualEnd
		out.ActualEnd = &t
	}
	if v.Address.Latitude != nil {
		lat := *v.Address.Latitude
		out.Address.Latitude = &lat
	}
	if v.Address.Longitude != nil {
		lng := *v.Address.Longitude
		out.Address.Longitude = &lng
	}
	return &out
}
