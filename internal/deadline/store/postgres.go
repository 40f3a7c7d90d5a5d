package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"safeharbour/internal/deadline/models"
	"safeharbour/internal/platform/postgres"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
	txcontext "safeharbour/pkg/platform/tx"
)

// PostgresStore persists deadlines and alerts. Extensions are a single
// conditional update against max_deadline, and every alert status change is
// conditional on the current status.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recordColumns = `subject_id, org_id, created_at, current_deadline, max_deadline, extension_count`

func (s *PostgresStore) CreateRecord(ctx context.Context, rec *models.Record) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO deadlines (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(rec.SubjectID), uuid.UUID(rec.OrgID), rec.CreatedAt, rec.CurrentDeadline,
		rec.MaxDeadline, rec.ExtensionCount)
	if err != nil {
		return postgres.ClassifyError(err, "insert deadline")
	}
	return nil
}

func (s *PostgresStore) FindRecord(ctx context.Context, subject id.CaseID) (*models.Record, error) {
	rec, err := scanRecord(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM deadlines WHERE subject_id = $1`, uuid.UUID(subject)))
	if err != nil {
		return nil, postgres.ClassifyError(err, "get deadline")
	}
	return rec, nil
}

// Extend moves the deadline by whole days only while the result stays within
// max_deadline. The headroom is compared in days so oversized requests never
// reach interval arithmetic. The previous deadline is read from the
// pre-update row.
func (s *PostgresStore) Extend(ctx context.Context, subject id.CaseID, days int) (time.Time, *models.Record, error) {
	var (
		previous time.Time
		rec      models.Record
		sid, oid uuid.UUID
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		WITH prev AS (
			SELECT subject_id, current_deadline FROM deadlines WHERE subject_id = $1 FOR UPDATE
		)
		UPDATE deadlines d
		SET current_deadline = d.current_deadline + $2::bigint * INTERVAL '24 hours',
		    extension_count = d.extension_count + 1
		FROM prev
		WHERE d.subject_id = prev.subject_id
		  AND $2::bigint >= 0
		  AND $2::bigint <= floor(extract(epoch FROM d.max_deadline - d.current_deadline) / 86400)
		RETURNING prev.current_deadline, d.subject_id, d.org_id, d.created_at,
		          d.current_deadline, d.max_deadline, d.extension_count
	`, uuid.UUID(subject), int64(days)).Scan(&previous, &sid, &oid, &rec.CreatedAt,
		&rec.CurrentDeadline, &rec.MaxDeadline, &rec.ExtensionCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			current, findErr := s.FindRecord(ctx, subject)
			if findErr != nil {
				return time.Time{}, nil, findErr
			}
			return time.Time{}, current, sentinel.ErrInvalidState
		}
		return time.Time{}, nil, postgres.ClassifyError(err, "extend deadline")
	}
	rec.SubjectID = id.CaseID(sid)
	rec.OrgID = id.OrgID(oid)
	return previous, &rec, nil
}

const alertColumns = `id, subject_id, org_id, kind, fire_at, status, recipient, delivered_at,
	acknowledged_at, acknowledged_by`

func (s *PostgresStore) CreateAlerts(ctx context.Context, alerts []*models.Alert) error {
	return txcontext.NewSQLRunner(s.db).RunInTx(ctx, func(ctx context.Context) error {
		for _, a := range alerts {
			_, err := s.conn(ctx).ExecContext(ctx, `
				INSERT INTO scheduled_alerts (`+alertColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, uuid.UUID(a.ID), uuid.UUID(a.SubjectID), uuid.UUID(a.OrgID), string(a.Kind), a.FireAt,
				string(a.Status), a.Recipient, a.DeliveredAt, a.AcknowledgedAt, a.AcknowledgedBy)
			if err != nil {
				return postgres.ClassifyError(err, "insert alert")
			}
		}
		return nil
	})
}

func (s *PostgresStore) FindAlert(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	a, err := scanAlert(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM scheduled_alerts WHERE id = $1`, uuid.UUID(alertID)))
	if err != nil {
		return nil, postgres.ClassifyError(err, "get alert")
	}
	return a, nil
}

func (s *PostgresStore) FindAlertByKey(ctx context.Context, subject id.CaseID, kind models.AlertKind) (*models.Alert, error) {
	a, err := scanAlert(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM scheduled_alerts WHERE subject_id = $1 AND kind = $2`,
		uuid.UUID(subject), string(kind)))
	if err != nil {
		return nil, postgres.ClassifyError(err, "get alert by key")
	}
	return a, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f models.AlertFilter) ([]*models.Alert, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" = $"+strconv.Itoa(len(args)))
	}
	if f.SubjectID != nil {
		add("subject_id", uuid.UUID(*f.SubjectID))
	}
	if f.OrgID != nil {
		add("org_id", uuid.UUID(*f.OrgID))
	}
	if f.Kind != "" {
		add("kind", string(f.Kind))
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	query := `SELECT ` + alertColumns + ` FROM scheduled_alerts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY fire_at, kind`
	return s.queryAlerts(ctx, "list alerts", query, args...)
}

func (s *PostgresStore) CancelScheduled(ctx context.Context, subject id.CaseID) ([]*models.Alert, error) {
	return s.queryAlerts(ctx, "cancel alerts", `
		UPDATE scheduled_alerts SET status = 'cancelled'
		WHERE subject_id = $1 AND status = 'scheduled'
		RETURNING `+alertColumns, uuid.UUID(subject))
}

func (s *PostgresStore) MarkDelivered(ctx context.Context, alertID id.AlertID, recipient *string, at time.Time) (bool, error) {
	return s.transition(ctx, alertID, `
		UPDATE scheduled_alerts SET status = 'delivered', recipient = $2, delivered_at = $3
		WHERE id = $1 AND status = 'scheduled'
	`, uuid.UUID(alertID), recipient, at)
}

func (s *PostgresStore) MarkSuppressed(ctx context.Context, alertID id.AlertID) (bool, error) {
	return s.transition(ctx, alertID, `
		UPDATE scheduled_alerts SET status = 'suppressed'
		WHERE id = $1 AND status = 'scheduled'
	`, uuid.UUID(alertID))
}

// Acknowledge stamps the first acknowledgement; repeats return the stored one.
// The conditional update decides which call was first.
func (s *PostgresStore) Acknowledge(ctx context.Context, alertID id.AlertID, actor string, at time.Time) (*models.Alert, bool, error) {
	first, err := s.transition(ctx, alertID, `
		UPDATE scheduled_alerts SET acknowledged_at = $2, acknowledged_by = $3
		WHERE id = $1 AND status = 'delivered' AND acknowledged_at IS NULL
	`, uuid.UUID(alertID), at, actor)
	if err != nil {
		return nil, false, err
	}
	a, err := s.FindAlert(ctx, alertID)
	if err != nil {
		return nil, false, err
	}
	if a.Status != models.AlertDelivered {
		return nil, false, sentinel.ErrInvalidState
	}
	return a, first, nil
}

func (s *PostgresStore) transition(ctx context.Context, alertID id.AlertID, query string, args ...any) (bool, error) {
	res, err := s.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, postgres.ClassifyError(err, "transition alert")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, postgres.ClassifyError(err, "transition alert")
	}
	if n == 0 {
		if _, err := s.FindAlert(ctx, alertID); err != nil {
			return false, err
		}
	}
	return n == 1, nil
}

func (s *PostgresStore) queryAlerts(ctx context.Context, op, query string, args ...any) ([]*models.Alert, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, postgres.ClassifyError(err, op)
	}
	defer rows.Close()
	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, postgres.ClassifyError(err, op)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError(err, op)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		rec      models.Record
		sid, oid uuid.UUID
	)
	if err := row.Scan(&sid, &oid, &rec.CreatedAt, &rec.CurrentDeadline, &rec.MaxDeadline, &rec.ExtensionCount); err != nil {
		return nil, err
	}
	rec.SubjectID = id.CaseID(sid)
	rec.OrgID = id.OrgID(oid)
	return &rec, nil
}

func scanAlert(row scanner) (*models.Alert, error) {
	var (
		a              models.Alert
		aid, sid, oid  uuid.UUID
		kind, status   string
		recipient      sql.NullString
		deliveredAt    sql.NullTime
		acknowledgedAt sql.NullTime
		acknowledgedBy sql.NullString
	)
	if err := row.Scan(&aid, &sid, &oid, &kind, &a.FireAt, &status, &recipient, &deliveredAt,
		&acknowledgedAt, &acknowledgedBy); err != nil {
		return nil, err
	}
	a.ID = id.AlertID(aid)
	a.SubjectID = id.CaseID(sid)
	a.OrgID = id.OrgID(oid)
	a.Kind = models.AlertKind(kind)
	a.Status = models.AlertStatus(status)
	if recipient.Valid {
		a.Recipient = &recipient.String
	}
	if deliveredAt.Valid {
		a.DeliveredAt = &deliveredAt.Time
	}
	if acknowledgedAt.Valid {
		a.AcknowledgedAt = &acknowledgedAt.Time
	}
	if acknowledgedBy.Valid {
		a.AcknowledgedBy = &acknowledgedBy.String
	}
	return &a, nil
}
