//go:build integration

package gateway_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caretrail/internal/gateway"
	id "caretrail/pkg/domain"
	"caretrail/pkg/testutil/containers"
)

// countingRegistry records how often the upstream is actually hit.
type countingRegistry struct {
	calls int
	data  *gateway.CaregiverData
}

func (r *countingRegistry) GetCaregiverData(ctx context.Context, caregiverID id.CaregiverID) (*gateway.CaregiverData, error) {
	r.calls++
	return r.data, nil
}

func TestCachedCaregiverRegistry_ReadThrough(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	caregiverID := id.NewCaregiverID()
	upstream := &countingRegistry{data: &gateway.CaregiverData{
		CaregiverID:    caregiverID,
		FullName:       "Dana Reyes",
		EmployeeNumber: "E-1042",
		Active:         true,
		CheckedAt:      time.Now().UTC().Truncate(time.Second),
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := gateway.NewCachedCaregiverRegistry(upstream, rc.Client, time.Minute, logger)

	first, err := registry.GetCaregiverData(ctx, caregiverID)
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes", first.FullName)
	assert.Equal(t, 1, upstream.calls)

	// Second lookup must come from redis, not the upstream.
	second, err := registry.GetCaregiverData(ctx, caregiverID)
	require.NoError(t, err)
	assert.Equal(t, first.CaregiverID, second.CaregiverID)
	assert.Equal(t, first.EmployeeNumber, second.EmployeeNumber)
	assert.Equal(t, 1, upstream.calls)
}

func TestCachedCaregiverRegistry_CorruptEntryOverwritten(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	caregiverID := id.NewCaregiverID()
	require.NoError(t, rc.Client.Set(ctx, "evv:caregiver:"+caregiverID.String(), "{not json", time.Minute).Err())

	upstream := &countingRegistry{data: &gateway.CaregiverData{CaregiverID: caregiverID, FullName: "Dana Reyes", Active: true}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := gateway.NewCachedCaregiverRegistry(upstream, rc.Client, time.Minute, logger)

	data, err := registry.GetCaregiverData(ctx, caregiverID)
	require.NoError(t, err)
	assert.Equal(t, "Dana Reyes", data.FullName)
	assert.Equal(t, 1, upstream.calls)

	// The corrupt entry is replaced, so the next read is a cache hit.
	_, err = registry.GetCaregiverData(ctx, caregiverID)
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)
}
