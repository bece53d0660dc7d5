package geofence

import (
	"testing"

	"caretrail/internal/visit/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

// Times Square-ish anchor; offsets below are computed against it.
const (
	anchorLat = 40.758000
	anchorLng = -73.985500
)

func addressAt(lat, lng, radius float64) models.Address {
	return models.Address{
		Latitude:             ptr(lat),
		Longitude:            ptr(lng),
		GeofenceRadiusMeters: radius,
	}
}

func TestValidate_WithinTolerance(t *testing.T) {
	v := NewValidator(100)

	// ~55m north of the anchor (1 degree latitude ~= 111.19 km).
	fix := &models.LocationFix{Latitude: anchorLat + 0.0005, Longitude: anchorLng}
	result := v.Validate(fix, addressAt(anchorLat, anchorLng, 100))

	assert.Equal(t, OutcomeWithinTolerance, result.Outcome)
	assert.True(t, result.WithinTolerance)
	assert.InDelta(t, 55.6, result.DistanceMeters, 1.0)
	assert.Equal(t, 100.0, result.RadiusMeters)
}

func TestValidate_OutsideTolerance(t *testing.T) {
	v := NewValidator(100)

	// ~333m north.
	fix := &models.LocationFix{Latitude: anchorLat + 0.003, Longitude: anchorLng}
	result := v.Validate(fix, addressAt(anchorLat, anchorLng, 100))

	assert.Equal(t, OutcomeOutsideTolerance, result.Outcome)
	assert.False(t, result.WithinTolerance)
	assert.Greater(t, result.DistanceMeters, 100.0)
}

func TestValidate_BoundaryIsInclusive(t *testing.T) {
	v := NewValidator(100)

	fix := &models.LocationFix{Latitude: anchorLat, Longitude: anchorLng}
	result := v.Validate(fix, addressAt(anchorLat, anchorLng, 100))

	require.Equal(t, OutcomeWithinTolerance, result.Outcome)
	assert.Zero(t, result.DistanceMeters)
}

func TestValidate_Unverifiable(t *testing.T) {
	v := NewValidator(100)

	t.Run("missing fix", func(t *testing.T) {
		result := v.Validate(nil, addressAt(anchorLat, anchorLng, 100))
		assert.Equal(t, OutcomeUnverifiable, result.Outcome)
		assert.False(t, result.WithinTolerance)
	})

	t.Run("address without coordinates", func(t *testing.T) {
		fix := &models.LocationFix{Latitude: anchorLat, Longitude: anchorLng}
		result := v.Validate(fix, models.Address{GeofenceRadiusMeters: 100})
		assert.Equal(t, OutcomeUnverifiable, result.Outcome)
	})

	t.Run("unverifiable is distinct from outside tolerance", func(t *testing.T) {
		result := v.Validate(nil, models.Address{})
		assert.NotEqual(t, OutcomeOutsideTolerance, result.Outcome)
	})
}

func TestValidate_DefaultRadiusApplies(t *testing.T) {
	v := NewValidator(250)

	// ~222m away: outside a 100m fence, inside the 250m default.
	fix := &models.LocationFix{Latitude: anchorLat + 0.002, Longitude: anchorLng}
	result := v.Validate(fix, addressAt(anchorLat, anchorLng, 0))

	assert.Equal(t, OutcomeWithinTolerance, result.Outcome)
	assert.Equal(t, 250.0, result.RadiusMeters)
}

// Monotonicity: if B is within tolerance and A is strictly closer, A must
// be within tolerance too.
func TestValidate_Monotonic(t *testing.T) {
	v := NewValidator(100)
	address := addressAt(anchorLat, anchorLng, 100)

	offsets := []float64{0.0001, 0.0003, 0.0005, 0.0007, 0.0009}
	var prev Result
	for i, off := range offsets {
		fix := &models.LocationFix{Latitude: anchorLat + off, Longitude: anchorLng}
		result := v.Validate(fix, address)
		if i > 0 {
			require.Greater(t, result.DistanceMeters, prev.DistanceMeters)
			if result.WithinTolerance {
				assert.True(t, prev.WithinTolerance,
					"closer fix must be within tolerance when a farther one is")
			}
		}
		prev = result
	}
}
