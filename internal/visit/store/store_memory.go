package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	"caretrail/pkg/platform/sentinel"
)

// InMemoryStore keeps the initial implementation lightweight and testable.
// It intentionally favors clarity over performance.
type InMemoryStore struct {
	mu      sync.RWMutex
	visits  map[id.VisitID]*models.VisitRecord
	history map[id.VisitID][]*models.VisitRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		visits:  make(map[id.VisitID]*models.VisitRecord),
		history: make(map[id.VisitID][]*models.VisitRecord),
	}
}

func (s *InMemoryStore) Load(_ context.Context, visitID id.VisitID) (*models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.visits[visitID]; ok {
		return record.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Save(_ context.Context, record *models.VisitRecord, expectedVersion int64) (*models.VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.visits[record.ID]
	switch {
	case !exists && expectedVersion != 0:
		return nil, sentinel.ErrNotFound
	case exists && current.Version != expectedVersion:
		return nil, sentinel.ErrConflict
	}

	stored := record.Clone()
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now()
	if !exists {
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = stored.UpdatedAt
		}
	} else {
		stored.CreatedAt = current.CreatedAt
		// The superseded version moves into history before the overwrite;
		// nothing is ever discarded.
		s.history[record.ID] = append(s.history[record.ID], current)
	}

	s.visits[record.ID] = stored
	return stored.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, filter VisitFilter) ([]*models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VisitRecord
	for _, record := range s.visits {
		if filter.Matches(record) {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Schedule.ServiceDate.Before(out[j].Schedule.ServiceDate)
	})
	return out, nil
}

// History returns every version of the visit oldest-first, the current one
// last.
func (s *InMemoryStore) History(_ context.Context, visitID id.VisitID) ([]*models.VisitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current, ok := s.visits[visitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	out := make([]*models.VisitRecord, 0, len(s.history[visitID])+1)
	for _, v := range s.history[visitID] {
		out = append(out, v.Clone())
	}
	return append(out, current.Clone()), nil
}

// Tamper mutates a stored version in place, bypassing versioning and the
// integrity chain. Test support only: it exists so tamper-detection paths
// can be exercised against this store.
func (s *InMemoryStore) Tamper(visitID id.VisitID, version int64, mutate func(record *models.VisitRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.visits[visitID]; ok && current.Version == version {
		mutate(current)
	}
	for _, v := range s.history[visitID] {
		if v.Version == version {
			mutate(v)
		}
	}
}

func (s *InMemoryStore) UpdateVisitStatus(ctx context.Context, visitID id.VisitID, status id.VisitStatus, expectedVersion int64) (*models.VisitRecord, error) {
	record, err := s.Load(ctx, visitID)
	if err != nil {
		return nil, err
	}
	record.Status = status
	return s.Save(ctx, record, expectedVersion)
}

func (s *InMemoryStore) UpdateVisitTiming(ctx context.Context, visitID id.VisitID, actualStart, actualEnd *time.Time, expectedVersion int64) (*models.VisitRecord, error) {
	record, err := s.Load(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if actualStart != nil {
		record.ActualStart = actualStart
	}
	if actualEnd != nil {
		record.ActualEnd = actualEnd
	}
	if record.ActualStart != nil && record.ActualEnd != nil {
		record.ActualDuration = record.ActualEnd.Sub(*record.ActualStart)
	}
	return s.Save(ctx, record, expectedVersion)
}
