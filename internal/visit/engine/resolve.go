package engine

import (
	"context"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"
	"caretrail/pkg/platform/audit"
	"caretrail/pkg/requestcontext"
)

// Resolve is the reviewer's exit from FLAGGED: either VERIFIED with an
// explicit override annotation, or terminal CLOSED. A resolution note is
// mandatory; it is recorded on the record and on every anomaly flag it
// clears.
func (e *Engine) Resolve(ctx context.Context, visitID id.VisitID, target id.VisitStatus, note string) (*models.VisitRecord, error) {
	if note == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "visit %s: a resolution note is required", visitID)
	}
	if target != id.StatusVerified && target != id.StatusClosed {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"visit %s: resolution target must be %s or %s, got %q",
			visitID, id.StatusVerified, id.StatusClosed, target)
	}

	actorID := requestcontext.ActorID(ctx)

	saved, err := e.mutate(ctx, visitID, "resolve", func(record *models.VisitRecord) error {
		if record.Status != id.StatusFlagged {
			return invalidTransition(record, "resolve")
		}

		record.ResolveAnomalies(note, actorID, requestcontext.Now(ctx))
		record.ResolutionNote = note
		record.ResolvedBy = actorID
		if target == id.StatusVerified {
			record.Overridden = true
		}
		record.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	if saved.Status == id.StatusClosed {
		e.audit(ctx, audit.EventVisitClosed, saved, note)
	} else {
		e.audit(ctx, audit.EventVisitResolved, saved, note)
	}
	return saved, nil
}
