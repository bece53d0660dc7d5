package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	id "caretrail/pkg/domain"
	audit "caretrail/pkg/platform/audit"
	txcontext "caretrail/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table in the same transaction as the
// visit mutation they describe and published to Kafka by the outbox worker,
// so a transition and its audit record can never diverge.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for deserialization by the consumer.
type outboxPayload struct {
	ID            string `json:"ID"`
	Category      string `json:"Category"`
	Timestamp     string `json:"Timestamp"`
	VisitID       string `json:"VisitID,omitempty"`
	Action        string `json:"Action"`
	Status        string `json:"Status,omitempty"`
	Reason        string `json:"Reason,omitempty"`
	RequestID     string `json:"RequestID,omitempty"`
	ActorID       string `json:"ActorID,omitempty"`
	IntegrityHash string `json:"IntegrityHash,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:            eventID.String(),
		Category:      string(category),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Action:        event.Action,
		Status:        event.Status,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
		ActorID:       event.ActorID,
		IntegrityHash: event.IntegrityHash,
	}
	if !event.VisitID.IsNil() {
		payload.VisitID = event.VisitID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.VisitID.IsNil() {
		aggregateType = "visit"
		aggregateID = event.VisitID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(), // outbox entry ID
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByVisit reads events back out of the outbox for a single visit,
// oldest first. The Kafka consumer materializes the long-term audit_events
// projection; this covers local inspection and tests.
func (s *Store) ListByVisit(ctx context.Context, visitID id.VisitID) ([]audit.Event, error) {
	query := `
		SELECT payload FROM outbox
		WHERE aggregate_type = 'visit' AND aggregate_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, visitID.String())
	if err != nil {
		return nil, fmt.Errorf("list outbox entries: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		var payload outboxPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse outbox timestamp: %w", err)
		}
		events = append(events, audit.Event{
			Category:      audit.EventCategory(payload.Category),
			Timestamp:     ts,
			VisitID:       visitID,
			Action:        payload.Action,
			Status:        payload.Status,
			Reason:        payload.Reason,
			RequestID:     payload.RequestID,
			ActorID:       payload.ActorID,
			IntegrityHash: payload.IntegrityHash,
		})
	}
	return events, rows.Err()
}
