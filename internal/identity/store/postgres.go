package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"safeharbour/internal/identity/models"
	"safeharbour/internal/platform/postgres"
	id "safeharbour/pkg/domain"
	txcontext "safeharbour/pkg/platform/tx"
)

// PostgresStore persists identities in PostgreSQL. The UIN column does not
// exist; seq_id is the only identifier stored.
type PostgresStore struct {
	db *sql.DB
	tx txcontext.Runner
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, tx: txcontext.NewSQLRunner(db)}
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

func (s *PostgresStore) Create(ctx context.Context, in models.NewIdentity) (*models.Record, error) {
	var rec *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := s.conn(ctx)
		var seq int64
		err := q.QueryRowContext(ctx, `
			INSERT INTO identities (org_id, role, created_at)
			VALUES ($1, $2, $3)
			RETURNING seq_id
		`, uuid.UUID(in.OrgID), string(in.Role), in.CreatedAt).Scan(&seq)
		if err != nil {
			return postgres.ClassifyError(err, "insert identity")
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO email_index (email_hash, seq_id) VALUES ($1, $2)`,
			in.EmailHash, seq,
		); err != nil {
			return postgres.ClassifyError(err, "insert email index")
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO identity_vault (seq_id, secret_ref) VALUES ($1, $2)`,
			seq, in.SecretRef,
		); err != nil {
			return postgres.ClassifyError(err, "insert vault entry")
		}
		rec = &models.Record{SeqID: uint32(seq), OrgID: in.OrgID, Role: in.Role, CreatedAt: in.CreatedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) FindBySeq(ctx context.Context, seq uint32) (*models.Record, error) {
	return s.scanOne(ctx, `
		SELECT seq_id, org_id, role, created_at FROM identities WHERE seq_id = $1
	`, int64(seq))
}

func (s *PostgresStore) FindByEmailHash(ctx context.Context, emailHash string) (*models.Record, error) {
	return s.scanOne(ctx, `
		SELECT i.seq_id, i.org_id, i.role, i.created_at
		FROM email_index e JOIN identities i ON i.seq_id = e.seq_id
		WHERE e.email_hash = $1
	`, emailHash)
}

func (s *PostgresStore) VaultSecret(ctx context.Context, seq uint32) (string, error) {
	var secret string
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT secret_ref FROM identity_vault WHERE seq_id = $1`, int64(seq),
	).Scan(&secret)
	if err != nil {
		return "", postgres.ClassifyError(err, "get vault entry")
	}
	return secret, nil
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, arg any) (*models.Record, error) {
	var (
		seq   int64
		orgID uuid.UUID
		role  string
		rec   models.Record
	)
	err := s.conn(ctx).QueryRowContext(ctx, query, arg).Scan(&seq, &orgID, &role, &rec.CreatedAt)
	if err != nil {
		return nil, postgres.ClassifyError(err, "get identity")
	}
	if seq < 0 || seq > int64(^uint32(0)) {
		return nil, fmt.Errorf("identity seq_id %d out of range", seq)
	}
	rec.SeqID = uint32(seq)
	rec.OrgID = id.OrgID(orgID)
	rec.Role = id.Role(role)
	return &rec, nil
}
