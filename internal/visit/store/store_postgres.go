package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caretrail/internal/visit/models"
	id "caretrail/pkg/domain"
	"caretrail/pkg/platform/sentinel"
	txcontext "caretrail/pkg/platform/tx"

	"github.com/lib/pq"
)

// Schema is the DDL the postgres store expects. EnsureSchema applies it;
// production deployments run it through the platform's migration tooling
// instead.
const Schema = `
CREATE TABLE IF NOT EXISTS visits (
	id              UUID PRIMARY KEY,
	org_id          UUID NOT NULL,
	branch_id       UUID NOT NULL,
	client_id       UUID NOT NULL,
	caregiver_id    UUID,
	service_date    DATE NOT NULL,
	start_time      TEXT NOT NULL,
	end_time        TEXT NOT NULL,
	scheduled_mins  BIGINT NOT NULL,
	street          TEXT NOT NULL DEFAULT '',
	city            TEXT NOT NULL DEFAULT '',
	region          TEXT NOT NULL DEFAULT '',
	postal_code     TEXT NOT NULL DEFAULT '',
	latitude        DOUBLE PRECISION,
	longitude       DOUBLE PRECISION,
	radius_meters   DOUBLE PRECISION NOT NULL DEFAULT 0,
	actual_start    TIMESTAMPTZ,
	actual_end      TIMESTAMPTZ,
	actual_mins     BIGINT NOT NULL DEFAULT 0,
	address_verified BOOLEAN NOT NULL DEFAULT FALSE,
	status          TEXT NOT NULL,
	anomalies       JSONB NOT NULL DEFAULT '[]',
	resolution_note TEXT NOT NULL DEFAULT '',
	resolved_by     UUID,
	overridden      BOOLEAN NOT NULL DEFAULT FALSE,
	integrity_hash  TEXT NOT NULL DEFAULT '',
	previous_hash   TEXT NOT NULL DEFAULT '',
	signature       TEXT NOT NULL DEFAULT '',
	version         BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS visit_history (
	LIKE visits INCLUDING DEFAULTS,
	PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS visits_status_idx ON visits (status);
CREATE INDEX IF NOT EXISTS visits_service_date_idx ON visits (service_date);

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_unpublished_idx ON outbox (created_at) WHERE published_at IS NULL;
`

const visitColumns = `id, org_id, branch_id, client_id, caregiver_id,
	service_date, start_time, end_time, scheduled_mins,
	street, city, region, postal_code, latitude, longitude, radius_meters,
	actual_start, actual_end, actual_mins, address_verified,
	status, anomalies, resolution_note, resolved_by, overridden,
	integrity_hash, previous_hash, signature, version, created_at, updated_at`

// PostgresStore persists visits in PostgreSQL with optimistic concurrency.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the DDL. Integration tests use it against throwaway
// containers.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply visit schema: %w", err)
	}
	return nil
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Load(ctx context.Context, visitID id.VisitID) (*models.VisitRecord, error) {
	row := s.querier(ctx).QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = $1`, visitID.String())
	record, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return record, err
}

// Save commits one new version. The previous row is copied into
// visit_history and the live row replaced in a single transaction, with the
// version check doing the conflict detection: an UPDATE that matches zero
// rows means someone committed in between.
func (s *PostgresStore) Save(ctx context.Context, record *models.VisitRecord, expectedVersion int64) (*models.VisitRecord, error) {
	if _, ok := txcontext.From(ctx); ok {
		return s.saveIn(ctx, s.querier(ctx), record, expectedVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	saved, err := s.saveIn(ctx, tx, record, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save tx: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) saveIn(ctx context.Context, q dbQuerier, record *models.VisitRecord, expectedVersion int64) (*models.VisitRecord, error) {
	stored := record.Clone()
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now()

	if expectedVersion == 0 {
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = stored.UpdatedAt
		}
		if err := insertVisit(ctx, q, `INSERT INTO visits (`+visitColumns+`) VALUES `, stored); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return nil, sentinel.ErrConflict
			}
			return nil, fmt.Errorf("insert visit: %w", err)
		}
		return stored, nil
	}

	// Snapshot the row being superseded. Zero rows here means the version
	// moved (or the visit is gone); the UPDATE below settles which.
	if _, err := q.ExecContext(ctx, `
		INSERT INTO visit_history
		SELECT * FROM visits WHERE id = $1 AND version = $2
		ON CONFLICT (id, version) DO NOTHING
	`, stored.ID.String(), expectedVersion); err != nil {
		return nil, fmt.Errorf("snapshot visit history: %w", err)
	}

	res, err := updateVisit(ctx, q, stored, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("update visit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update visit rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM visits WHERE id = $1)`, stored.ID.String(),
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check visit existence: %w", err)
		}
		if !exists {
			return nil, sentinel.ErrNotFound
		}
		// Roll back the premature history snapshot for the stale version.
		if _, err := q.ExecContext(ctx,
			`DELETE FROM visit_history WHERE id = $1 AND version = $2`,
			stored.ID.String(), expectedVersion,
		); err != nil {
			return nil, fmt.Errorf("undo history snapshot: %w", err)
		}
		return nil, sentinel.ErrConflict
	}
	return stored, nil
}

func (s *PostgresStore) List(ctx context.Context, filter VisitFilter) ([]*models.VisitRecord, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OrgID != nil {
		query += ` AND org_id = ` + arg(filter.OrgID.String())
	}
	if filter.BranchID != nil {
		query += ` AND branch_id = ` + arg(filter.BranchID.String())
	}
	if filter.ClientID != nil {
		query += ` AND client_id = ` + arg(filter.ClientID.String())
	}
	if filter.CaregiverID != nil {
		query += ` AND caregiver_id = ` + arg(filter.CaregiverID.String())
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, st.String())
		}
		query += ` AND status = ANY(` + arg(pq.Array(statuses)) + `)`
	}
	if filter.ServiceDateFrom != nil {
		query += ` AND service_date >= ` + arg(*filter.ServiceDateFrom)
	}
	if filter.ServiceDateTo != nil {
		query += ` AND service_date <= ` + arg(*filter.ServiceDateTo)
	}
	query += ` ORDER BY service_date ASC, id ASC`

	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()
	return scanVisits(rows)
}

func (s *PostgresStore) History(ctx context.Context, visitID id.VisitID) ([]*models.VisitRecord, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+visitColumns+` FROM visit_history WHERE id = $1
		UNION ALL
		SELECT `+visitColumns+` FROM visits WHERE id = $1
		ORDER BY version ASC
	`, visitID.String())
	if err != nil {
		return nil, fmt.Errorf("load visit history: %w", err)
	}
	defer rows.Close()

	versions, err := scanVisits(rows)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return versions, nil
}

func (s *PostgresStore) UpdateVisitStatus(ctx context.Context, visitID id.VisitID, status id.VisitStatus, expectedVersion int64) (*models.VisitRecord, error) {
	record, err := s.Load(ctx, visitID)
	if err != nil {
		return nil, err
	}
	record.Status = status
	return s.Save(ctx, record, expectedVersion)
}

func (s *PostgresStore) UpdateVisitTiming(ctx context.Context, visitID id.VisitID, actualStart, actualEnd *time.Time, expectedVersion int64) (*models.VisitRecord, error) {
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
