package domain

import "fmt"

// AnomalyCode identifies a soft anomaly recorded on a visit. Soft anomalies
// never block the transition that produced them, but any unresolved anomaly
// blocks automatic progression to VERIFIED.
type AnomalyCode string

const (
	AnomalyGeofenceOutside      AnomalyCode = "GEOFENCE_OUTSIDE_TOLERANCE"
	AnomalyGeofenceUnverifiable AnomalyCode = "GEOFENCE_UNVERIFIABLE"
	AnomalyDurationVariance     AnomalyCode = "DURATION_VARIANCE"
	AnomalyOutOfOrderEvent      AnomalyCode = "OUT_OF_ORDER_EVENT"
)

func ParseAnomalyCode(s string) (AnomalyCode, error) {
	switch code := AnomalyCode(s); code {
	case AnomalyGeofenceOutside, AnomalyGeofenceUnverifiable,
		AnomalyDurationVariance, AnomalyOutOfOrderEvent:
		return code, nil
	}
	return "", fmt.Errorf("unknown anomaly code %q", s)
}

func (c AnomalyCode) String() string { return string(c) }
