package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"caretrail/internal/integrity"
	id "caretrail/pkg/domain"
	dErrors "caretrail/pkg/domain-errors"
	"caretrail/pkg/platform/audit"
	"caretrail/pkg/platform/sentinel"
)

// ExportEntry is one chain link of a visit's history, carrying the exact
// canonical bytes that were hashed (base64) so an external auditor can
// recompute SHA-256(canonical ‖ previousHash) and confirm every link
// without access to this system.
type ExportEntry struct {
	Version         int64     `json:"version"`
	Status          string    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
	CanonicalBase64 string    `json:"canonical_base64"`
	IntegrityHash   string    `json:"integrity_hash"`
	PreviousHash    string    `json:"previous_hash"`
	Signature       string    `json:"signature,omitempty"`
}

// AuditExport is the regulator-facing view of one visit's full history.
type AuditExport struct {
	VisitID     string        `json:"visit_id"`
	GenesisSeed string        `json:"genesis_seed"`
	Entries     []ExportEntry `json:"entries"`
}

// ExportAuditTrail returns the full version history of a visit with its
// hash chain. The chain is verified before export; a broken link aborts
// the export rather than shipping a trail that cannot pass inspection.
func (e *Engine) ExportAuditTrail(ctx context.Context, visitID id.VisitID) (*AuditExport, error) {
	history, err := e.store.History(ctx, visitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound, err, "visit %s", visitID)
		}
		return nil, err
	}

	if err := e.hasher.VerifyChain(history); err != nil {
		e.metrics.IncrementIntegrityMismatch()
		if len(history) > 0 {
			e.audit(ctx, audit.EventIntegrityMismatch, history[len(history)-1], err.Error())
		}
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "audit export aborted on broken chain",
				"visit_id", visitID.String(), "error", err)
		}
		return nil, err
	}

	export := &AuditExport{
		VisitID:     visitID.String(),
		GenesisSeed: integrity.GenesisSeed,
		Entries:     make([]ExportEntry, 0, len(history)),
	}
	for _, version := range history {
		canonical, err := integrity.Canonicalize(version)
		if err != nil {
			return nil, err
		}
		export.Entries = append(export.Entries, ExportEntry{
			Version:         version.Version,
			Status:          version.Status.String(),
			UpdatedAt:       version.UpdatedAt,
			CanonicalBase64: base64.StdEncoding.EncodeToString(canonical),
			IntegrityHash:   version.IntegrityHash,
			PreviousHash:    version.PreviousHash,
			Signature:       version.Signature,
		})
	}

	if len(history) > 0 {
		e.audit(ctx, audit.EventAuditExported, history[len(history)-1], "")
	}
	return export, nil
}
