package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"safeharbour/internal/cases/models"
	"safeharbour/internal/platform/postgres"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
	txcontext "safeharbour/pkg/platform/tx"
)

// PostgresStore persists cases. Status changes are conditional updates so
// concurrent actors cannot skip or repeat a transition.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) queryer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const caseColumns = `id, org_id, victim_uin, subject_uin, status, interim_relief_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.Case) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(c.ID), uuid.UUID(c.OrgID), c.VictimUIN, c.SubjectUIN, string(c.Status),
		c.InterimReliefAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return postgres.ClassifyError(err, "insert case")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := scanCase(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, uuid.UUID(caseID)))
	if err != nil {
		return nil, postgres.ClassifyError(err, "get case")
	}
	return c, nil
}

func (s *PostgresStore) Transition(ctx context.Context, caseID id.CaseID, from []models.Status, to models.Status, now time.Time) (*models.Case, error) {
	fromStrings := make([]string, len(from))
	for i, f := range from {
		fromStrings[i] = string(f)
	}
	c, err := scanCase(s.conn(ctx).QueryRowContext(ctx, `
		UPDATE cases SET status = $2, updated_at = $3
		WHERE id = $1 AND status = ANY($4)
		RETURNING `+caseColumns,
		uuid.UUID(caseID), string(to), now, pq.Array(fromStrings)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missOrInvalid(ctx, caseID)
		}
		return nil, postgres.ClassifyError(err, "transition case")
	}
	return c, nil
}

func (s *PostgresStore) SetInterimRelief(ctx context.Context, caseID id.CaseID, at time.Time) (*models.Case, error) {
	c, err := scanCase(s.conn(ctx).QueryRowContext(ctx, `
		UPDATE cases SET interim_relief_at = $2, updated_at = $2
		WHERE id = $1 AND status <> $3
		RETURNING `+caseColumns,
		uuid.UUID(caseID), at, string(models.StatusResolved)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missOrInvalid(ctx, caseID)
		}
		return nil, postgres.ClassifyError(err, "set interim relief")
	}
	return c, nil
}

func (s *PostgresStore) missOrInvalid(ctx context.Context, caseID id.CaseID) error {
	if _, err := s.FindByID(ctx, caseID); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (*models.Case, error) {
	var (
		c      models.Case
		caseID uuid.UUID
		orgID  uuid.UUID
		status string
		relief sql.NullTime
	)
	if err := row.Scan(&caseID, &orgID, &c.VictimUIN, &c.SubjectUIN, &status, &relief, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = id.CaseID(caseID)
	c.OrgID = id.OrgID(orgID)
	c.Status = models.Status(status)
	if relief.Valid {
		t := relief.Time
		c.InterimReliefAt = &t
	}
	return &c, nil
}
