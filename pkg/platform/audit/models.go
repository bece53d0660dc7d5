package audit

import (
	"context"
	"time"

	id "caretrail/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// EVV transitions and integrity findings land here; regulators can
	// request these for reimbursement review, so retention is long.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to tamper forensics and
	// alerting, e.g. integrity mismatches and reviewer overrides.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the verification engine to capture key actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	VisitID   id.VisitID
	Action    string
	Status    string // visit status after the action
	Reason    string // why the action produced this outcome (flag reason, mismatch detail)
	RequestID string // correlation ID from HTTP request context
	// ActorID tracks who performed the action: the caregiver for
	// check-in/out, the reviewer for resolutions. Empty for sweeps.
	ActorID string
	// IntegrityHash carries the chain head after a sealing action so the
	// audit stream can be reconciled against the visit history.
	IntegrityHash string
}

type AuditEvent string

const (
	EventVisitCheckedIn    AuditEvent = "visit_checked_in"
	EventVisitCheckedOut   AuditEvent = "visit_checked_out"
	EventVisitInProgress   AuditEvent = "visit_in_progress"
	EventVisitVerified     AuditEvent = "visit_verified"
	EventVisitFlagged      AuditEvent = "visit_flagged"
	EventVisitResolved     AuditEvent = "visit_resolved"
	EventVisitClosed       AuditEvent = "visit_closed"
	EventAnomalyRecorded   AuditEvent = "anomaly_recorded"
	EventIntegrityMismatch AuditEvent = "integrity_mismatch"
	EventAuditExported     AuditEvent = "audit_exported"
)

// eventCategories maps each audit event to its category.
// Compliance: regulatory significance, long retention required.
// Security: tamper forensics and alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventVisitCheckedIn:  CategoryCompliance,
	EventVisitCheckedOut: CategoryCompliance,
	EventVisitVerified:   CategoryCompliance,
	EventVisitFlagged:    CategoryCompliance,
	EventVisitResolved:   CategoryCompliance,
	EventVisitClosed:     CategoryCompliance,
	EventAnomalyRecorded: CategoryCompliance,

	EventIntegrityMismatch: CategorySecurity,

	EventVisitInProgress: CategoryOperations,
	EventAuditExported:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations: in-memory for tests, a
// postgres outbox for production.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByVisit(ctx context.Context, visitID id.VisitID) ([]Event, error)
}
