// Package geofence classifies whether a location fix falls inside the
// tolerance circle around a service address. The math is pure; callers own
// the policy of what to do with an out-of-tolerance or unverifiable result.
package geofence

import (
	"math"

	"caretrail/internal/visit/models"
)

// earthRadiusMeters is the mean Earth radius used for haversine.
const earthRadiusMeters = 6371000.0

// Outcome distinguishes a failed check from one that could not be made.
// Callers must treat Unverifiable as a soft anomaly, not a hard rejection:
// a dead GPS chip must not block care delivery.
type Outcome string

const (
	OutcomeWithinTolerance  Outcome = "WITHIN_TOLERANCE"
	OutcomeOutsideTolerance Outcome = "OUTSIDE_TOLERANCE"
	OutcomeUnverifiable     Outcome = "UNVERIFIABLE"
)

// Result reports the classification and, when verifiable, the measured
// distance from the fix to the address.
type Result struct {
	Outcome         Outcome
	DistanceMeters  float64
	RadiusMeters    float64
	WithinTolerance bool
}

// Validator performs geofence classification with a fallback radius for
// addresses the scheduling system left without one.
type Validator struct {
	defaultRadiusMeters float64
}

func NewValidator(defaultRadiusMeters float64) *Validator {
	return &Validator{defaultRadiusMeters: defaultRadiusMeters}
}

// Validate classifies fix against address. A missing fix or an address
// without coordinates yields OutcomeUnverifiable; distance is only
// meaningful on the other two outcomes.
func (v *Validator) Validate(fix *models.LocationFix, address models.Address) Result {
	if fix == nil || !address.HasCoordinates() {
		return Result{Outcome: OutcomeUnverifiable}
	}

	radius := address.GeofenceRadiusMeters
	if radius <= 0 {
		radius = v.defaultRadiusMeters
	}

	distance := haversineMeters(fix.Latitude, fix.Longitude, *address.Latitude, *address.Longitude)
	result := Result{
		DistanceMeters: distance,
		RadiusMeters:   radius,
	}
	if distance <= radius {
		result.Outcome = OutcomeWithinTolerance
		result.WithinTolerance = true
	} else {
		result.Outcome = OutcomeOutsideTolerance
	}
	return result
}

// haversineMeters computes the great-circle distance between two points.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}
