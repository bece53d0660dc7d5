package engine

import (
	"context"
	"fmt"
	"time"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	"caretrail/pkg/platform/audit"
	"caretrail/pkg/requestcontext"
)

// Verify reconciles actual against scheduled time and either seals the
// visit as VERIFIED or parks it in FLAGGED for human review. Valid only
// from CHECKED_OUT. It never forces VERIFIED: a duration outside policy or
// any unresolved anomaly flag routes to FLAGGED with the reason recorded.
func (e *Engine) Verify(ctx context.Context, visitID id.VisitID) (*models.VisitRecord, error) {
	var flagReason string
	saved, err := e.mutate(ctx, visitID, "verify", func(record *models.VisitRecord) error {
		flagReason = ""
		if record.Status != id.StatusCheckedOut {
			return invalidTransition(record, "verify")
		}

		// The stored chain head must recompute before this operation
		// builds on it. A mismatch is a bug or tampering; surface it and
		// stop, never repair.
		if record.IntegrityHash != "" {
			if err := e.hasher.Verify(record); err != nil {
				e.metrics.IncrementIntegrityMismatch()
				e.audit(ctx, audit.EventIntegrityMismatch, record, err.Error())
				if e.logger != nil {
					e.logger.ErrorContext(ctx, "integrity mismatch detected",
						"visit_id", record.ID.String(), "version", record.Version, "error", err)
				}
				return err
			}
		}

		result, err := e.timing.Reconcile(record.Schedule, derefTime(record.ActualStart), derefTime(record.ActualEnd))
		if err != nil {
			return err
		}
		record.ActualDuration = result.ActualDuration

		if !result.WithinPolicy {
			detail := fmt.Sprintf("actual %s vs scheduled %s: variance %.0f min (%.0f%%)",
				result.ActualDuration, result.ScheduledDuration,
				result.VarianceMinutes, result.VariancePercent*100)
			record.AppendAnomaly(id.AnomalyDurationVariance, detail, requestcontext.Now(ctx))
			e.metrics.IncrementAnomaly(string(id.AnomalyDurationVariance))
		}

		if open := record.UnresolvedAnomalies(); len(open) > 0 {
			flagReason = string(open[0].Code)
			if len(open) > 1 {
				flagReason = fmt.Sprintf("%s (+%d more)", open[0].Code, len(open)-1)
			}
			record.Status = id.StatusFlagged
			return nil
		}

		record.Status = id.StatusVerified
		return nil
	})
	if err != nil {
		return nil, err
	}

	if saved.Status == id.StatusFlagged {
		e.audit(ctx, audit.EventVisitFlagged, saved, flagReason)
	} else {
		e.audit(ctx, audit.EventVisitVerified, saved, "")
	}
	return saved, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
