package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"safeharbour/internal/committee/models"
	"safeharbour/internal/platform/postgres"
	id "safeharbour/pkg/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const memberColumns = `org_id, uin, role, designations, created_at`

func (s *PostgresStore) Upsert(ctx context.Context, m *models.Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO committee_members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, uin) DO UPDATE SET
			role = EXCLUDED.role,
			designations = EXCLUDED.designations
	`, uuid.UUID(m.OrgID), m.UIN, string(m.Role), pq.Array(designationStrings(m.Designations)), m.CreatedAt)
	if err != nil {
		return postgres.ClassifyError(err, "upsert committee member")
	}
	return nil
}

func (s *PostgresStore) FindByUIN(ctx context.Context, uin string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM committee_members WHERE uin = $1
		ORDER BY created_at LIMIT 1
	`, uin)
	m, err := scanMember(row)
	if err != nil {
		return nil, postgres.ClassifyError(err, "get committee member")
	}
	return m, nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memberColumns+` FROM committee_members WHERE org_id = $1
		ORDER BY created_at, uin
	`, uuid.UUID(orgID))
	if err != nil {
		return nil, postgres.ClassifyError(err, "list committee members")
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan committee member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindDesignated(ctx context.Context, orgID id.OrgID, d models.Designation) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM committee_members
		WHERE org_id = $1 AND $2 = ANY(designations)
		ORDER BY created_at, uin LIMIT 1
	`, uuid.UUID(orgID), string(d))
	m, err := scanMember(row)
	if err != nil {
		return nil, postgres.ClassifyError(err, "get designated member")
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*models.Member, error) {
	var (
		m            models.Member
		orgID        uuid.UUID
		role         string
		designations []string
	)
	if err := row.Scan(&orgID, &m.UIN, &role, pq.Array(&designations), &m.CreatedAt); err != nil {
		return nil, err
	}
	m.OrgID = id.OrgID(orgID)
	m.Role = id.Role(role)
	for _, d := range designations {
		m.Designations = append(m.Designations, models.Designation(d))
	}
	return &m, nil
}

func designationStrings(ds []models.Designation) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d)
	}
	return out
}
