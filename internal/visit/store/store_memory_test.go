package store

import (
	"context"
	"testing"
	"time"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	"caretrail/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVisit(t *testing.T) *models.VisitRecord {
	t.Helper()
	return &models.VisitRecord{
		ID:       id.NewVisitID(),
		OrgID:    id.OrgID(uuid.New()),
		BranchID: id.BranchID(uuid.New()),
		ClientID: id.ClientID(uuid.New()),
		Schedule: models.Schedule{
			ServiceDate: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
			StartTime:   "09:00",
			EndTime:     "11:00",
			Duration:    2 * time.Hour,
		},
		Status: id.StatusScheduled,
	}
}

func TestSave_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	visit := newVisit(t)

	saved, err := s.Save(ctx, visit, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assert.False(t, saved.CreatedAt.IsZero())

	loaded, err := s.Load(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Version, loaded.Version)
	assert.Equal(t, id.StatusScheduled, loaded.Status)
}

func TestLoad_NotFound(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Load(context.Background(), id.NewVisitID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSave_VersionIncrementsByOne(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	visit := newVisit(t)

	saved, err := s.Save(ctx, visit, 0)
	require.NoError(t, err)

	for expected := int64(1); expected <= 4; expected++ {
		saved, err = s.Save(ctx, saved, expected)
		require.NoError(t, err)
		assert.Equal(t, expected+1, saved.Version)
	}
}

// Scenario: a save with expectedVersion 3 while the store holds version 4
// is rejected outright; reloading and retrying with 4 succeeds.
func TestSave_StaleVersionRejectedThenRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	visit := newVisit(t)

	saved, err := s.Save(ctx, visit, 0)
	require.NoError(t, err)
	for expected := int64(1); expected <= 3; expected++ {
		saved, err = s.Save(ctx, saved, expected)
		require.NoError(t, err)
	}
	require.Equal(t, int64(4), saved.Version)

	_, err = s.Save(ctx, saved, 3)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	reloaded, err := s.Load(ctx, visit.ID)
	require.NoError(t, err)
	retried, err := s.Save(ctx, reloaded, reloaded.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(5), retried.Version)
}

func TestSave_UnknownVisitWithNonZeroVersion(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Save(context.Background(), newVisit(t), 2)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestHistory_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	visit := newVisit(t)

	saved, err := s.Save(ctx, visit, 0)
	require.NoError(t, err)

	saved.Status = id.StatusCheckedIn
	saved, err = s.Save(ctx, saved, 1)
	require.NoError(t, err)

	saved.Status = id.StatusCheckedOut
	_, err = s.Save(ctx, saved, 2)
	require.NoError(t, err)

	history, err := s.History(ctx, visit.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(1), history[0].Version)
	assert.Equal(t, id.StatusScheduled, history[0].Status)
	assert.Equal(t, int64(2), history[1].Version)
	assert.Equal(t, id.StatusCheckedIn, history[1].Status)
	assert.Equal(t, int64(3), history[2].Version)
	assert.Equal(t, id.StatusCheckedOut, history[2].Status)
}

func TestSave_ReturnsDetachedCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	visit := newVisit(t)

	saved, err := s.Save(ctx, visit, 0)
	require.NoError(t, err)

	// Mutating the returned record must not leak into the store.
	saved.Status = id.StatusClosed
	saved.AppendAnomaly(id.AnomalyDurationVariance, "tampered", time.Now())

	loaded, err := s.Load(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, id.StatusScheduled, loaded.Status)
	assert.Empty(t, loaded.Anomalies)
}

func TestList_FilterFields(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	caregiver := id.CaregiverID(uuid.New())

	a := newVisit(t)
	a.CaregiverID = caregiver
	a.Status = id.StatusCheckedIn
	_, err := s.Save(ctx, a, 0)
	require.NoError(t, err)

	b := newVisit(t)
	b.Status = id.StatusScheduled
	_, err = s.Save(ctx, b, 0)
	require.NoError(t, err)

	t.Run("by status", func(t *testing.T) {
		got, err := s.List(ctx, VisitFilter{Statuses: []id.VisitStatus{id.StatusCheckedIn}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)
	})

	t.Run("by caregiver", func(t *testing.T) {
		got, err := s.List(ctx, VisitFilter{CaregiverID: &caregiver})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)
	})

	t.Run("date window excludes", func(t *testing.T) {
		from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		got, err := s.List(ctx, VisitFilter{ServiceDateFrom: &from})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty filter matches all", func(t *testing.T) {
		got, err := s.List(ctx, VisitFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestUpdateProjections(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	visit := newVisit(t)

	saved, err := s.Save(ctx, visit, 0)
	require.NoError(t, err)

	t.Run("status projection", func(t *testing.T) {
		updated, err := s.UpdateVisitStatus(ctx, visit.ID, id.StatusCheckedIn, saved.Version)
		require.NoError(t, err)
		assert.Equal(t, id.StatusCheckedIn, updated.Status)
		assert.Equal(t, saved.Version+1, updated.Version)
		saved = updated
	})

	t.Run("timing projection computes duration", func(t *testing.T) {
		start := time.Date(2025, time.March, 3, 9, 2, 0, 0, time.UTC)
		end := time.Date(2025, time.March, 3, 11, 10, 0, 0, time.UTC)
		updated, err := s.UpdateVisitTiming(ctx, visit.ID, &start, &end, saved.Version)
		require.NoError(t, err)
		assert.Equal(t, 128*time.Minute, updated.ActualDuration)
	})

	t.Run("stale projection rejected", func(t *testing.T) {
		_, err := s.UpdateVisitStatus(ctx, visit.ID, id.StatusClosed, 1)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})
}
