// Package engine drives the visit lifecycle: check-in, check-out,
// verification, reviewer resolution, and the periodic sweep. It is the
// only component that mutates visit records; everything it commits is
// hash-chained, versioned, and audited.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"caretrail/internal/gateway"
	"caretrail/internal/integrity"
	"caretrail/internal/platform/metrics"
	"caretrail/internal/verification/geofence"
	"caretrail/internal/verification/timing"
	"caretrail/internal/visit/models"
	"caretrail/internal/visit/store"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"
	"caretrail/pkg/platform/audit"
	"caretrail/pkg/platform/sentinel"
	"caretrail/pkg/requestcontext"
)

// conflictRetries bounds reload-and-retry on optimistic-concurrency
// conflicts before the failure surfaces to the caller.
const conflictRetries = 3

// AuditPublisher is the slice of the audit pipeline the engine needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Engine orchestrates geofence checking, time reconciliation, and
// integrity sealing over the visit store. Operations on the same visit id
// are mutually exclusive end-to-end; different visit ids proceed in
// parallel.
type Engine struct {
	store      store.Store
	geofence   *geofence.Validator
	timing     *timing.Reconciler
	hasher     *integrity.Hasher
	scheduling gateway.Scheduling
	caregivers gateway.CaregiverRegistry

	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	locks visitLocks
}

func New(
	st store.Store,
	gf *geofence.Validator,
	tr *timing.Reconciler,
	hasher *integrity.Hasher,
	scheduling gateway.Scheduling,
	caregivers gateway.CaregiverRegistry,
	publisher AuditPublisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		store:      st,
		geofence:   gf,
		timing:     tr,
		hasher:     hasher,
		scheduling: scheduling,
		caregivers: caregivers,
		publisher:  publisher,
		logger:     logger,
		metrics:    m,
	}
}

// Get returns the current version of a visit.
func (e *Engine) Get(ctx context.Context, visitID id.VisitID) (*models.VisitRecord, error) {
	record, err := e.store.Load(ctx, visitID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeNotFound, err, "visit %s", visitID)
	}
	return record, err
}

// invalidTransition builds the rejection for an operation attempted from a
// state that does not permit it. Carries the visit id, current state, and
// attempted operation so callers can diagnose without internal logs.
func invalidTransition(record *models.VisitRecord, operation string) error {
	return dErrors.New(dErrors.CodeInvalidTransition,
		"visit %s: %s not permitted from status %s", record.ID, operation, record.Status)
}

// mutate runs a load-apply-commit cycle under the visit's lock with
// bounded retry on save conflicts. apply mutates the record in place and
// returns the operation's audit action, or an error that leaves state
// untouched. Each committed version is hash-chained before the save.
func (e *Engine) mutate(ctx context.Context, visitID id.VisitID, operation string, apply func(record *models.VisitRecord) error) (*models.VisitRecord, error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveOperationLatency(operation, time.Since(start))
	}()

	unlock := e.locks.lock(visitID)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		record, err := e.store.Load(ctx, visitID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(dErrors.CodeNotFound, err, "visit %s", visitID)
			}
			return nil, err
		}

		if err := apply(record); err != nil {
			e.metrics.IncrementTransition(operation, "rejected")
			return nil, err
		}

		saved, err := e.commit(ctx, record)
		if err == nil {
			e.metrics.IncrementTransition(operation, "committed")
			return saved, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, err
		}
		e.metrics.IncrementSaveConflict()
		lastErr = err
	}

	e.metrics.IncrementTransition(operation, "conflict")
	return nil, dErrors.Wrap(dErrors.CodeConflict, lastErr,
		"visit %s: %s lost %d version races", visitID, operation, conflictRetries+1)
}

// commit chains and saves one new version. The hash covers the version
// number about to be written, so the stored record recomputes exactly.
func (e *Engine) commit(ctx context.Context, record *models.VisitRecord) (*models.VisitRecord, error) {
	expected := record.Version

	previous := record.IntegrityHash
	if previous == "" {
		previous = integrity.GenesisSeed
	}

	record.PreviousHash = previous
	record.Version = expected + 1
	seal, err := e.hasher.Compute(record, previous)
	if err != nil {
		return nil, err
	}
	record.IntegrityHash = seal.Hash
	record.Signature = seal.Signature
	record.Version = expected

	return e.store.Save(ctx, record, expected)
}

// audit logs the action and hands it to the audit pipeline. Both sinks are
// best-effort here; the committed record is the source of truth.
func (e *Engine) audit(ctx context.Context, action audit.AuditEvent, record *models.VisitRecord, reason string) {
	requestID := requestcontext.RequestID(ctx)
	actorID := requestcontext.ActorID(ctx)

	if e.logger != nil {
		e.logger.InfoContext(ctx, string(action),
			"visit_id", record.ID.String(),
			"status", record.Status.String(),
			"version", record.Version,
			"reason", reason,
			"request_id", requestID,
			"log_type", "audit",
		)
	}
	if e.publisher == nil {
		return
	}
	event := audit.Event{
		VisitID:       record.ID,
		Action:        string(action),
		Status:        record.Status.String(),
		Reason:        reason,
		RequestID:     requestID,
		IntegrityHash: record.IntegrityHash,
	}
	if !actorID.IsNil() {
		event.ActorID = actorID.String()
	}
	_ = e.publisher.Emit(ctx, event)
}
