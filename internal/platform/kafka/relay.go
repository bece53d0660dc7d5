package kafka

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Relay drains the audit outbox into Kafka. It is safe to run exactly one
// relay per deployment; the published_at marker makes restarts idempotent
// from the database's point of view (Kafka consumers must still dedupe on
// event id, which the payload carries).
type Relay struct {
	db       *sql.DB
	producer *Producer
	logger   *slog.Logger

	pollInterval time.Duration
	batchSize    int
}

func NewRelay(db *sql.DB, producer *Producer, logger *slog.Logger) *Relay {
	return &Relay{
		db:           db,
		producer:     producer,
		logger:       logger,
		pollInterval: time.Second,
		batchSize:    100,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				// Broker or database hiccups resolve on the next tick;
				// the outbox holds everything until then.
				r.logger.WarnContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, payload FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, r.batchSize)
	if err != nil {
		return fmt.Errorf("select outbox batch: %w", err)
	}
	defer rows.Close()

	type entry struct {
		id          string
		aggregateID string
		payload     []byte
	}
	var batch []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.aggregateID, &e.payload); err != nil {
			return fmt.Errorf("scan outbox entry: %w", err)
		}
		batch = append(batch, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range batch {
		if err := r.producer.Publish(ctx, e.aggregateID, e.payload); err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = $2`,
			time.Now(), e.id,
		); err != nil {
			return fmt.Errorf("mark outbox entry published: %w", err)
		}
	}
	return nil
}
