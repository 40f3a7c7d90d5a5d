package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"safeharbour/internal/platform/postgres"
	"safeharbour/internal/reveal/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
	txcontext "safeharbour/pkg/platform/tx"
)

// PostgresStore persists reveal requests. reveal_requests_one_open keeps a
// single non-executed request per case; status moves are conditional updates.
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

const requestColumns = `id, subject_id, requester_id, reason, status, required_approvals,
	created_at, approved_at, executed_at, executor_id, executed_secret`

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO reveal_requests (id, subject_id, requester_id, reason, status, required_approvals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(req.ID), uuid.UUID(req.SubjectID), req.RequesterID, req.Reason, string(req.Status),
		req.RequiredApprovals, req.CreatedAt)
	if err != nil {
		return postgres.ClassifyError(err, "insert reveal request")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RevealID) (*models.Request, error) {
	var (
		req        models.Request
		rid, sid   uuid.UUID
		status     string
		approvedAt sql.NullTime
		executedAt sql.NullTime
		executorID sql.NullString
		secret     sql.NullString
	)
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM reveal_requests WHERE id = $1`, uuid.UUID(requestID),
	).Scan(&rid, &sid, &req.RequesterID, &req.Reason, &status, &req.RequiredApprovals,
		&req.CreatedAt, &approvedAt, &executedAt, &executorID, &secret)
	if err != nil {
		return nil, postgres.ClassifyError(err, "get reveal request")
	}
	req.ID = id.RevealID(rid)
	req.SubjectID = id.CaseID(sid)
	req.Status = models.Status(status)
	if approvedAt.Valid {
		req.ApprovedAt = &approvedAt.Time
	}
	if executedAt.Valid {
		req.ExecutedAt = &executedAt.Time
	}
	req.ExecutorID = executorID.String
	req.ExecutedSecret = secret.String
	return &req, nil
}

func (s *PostgresStore) InsertApproval(ctx context.Context, a *models.Approval) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO reveal_approvals (request_id, approver_id, approver_role, cast_at)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM reveal_requests WHERE id = $1 AND status = 'pending')
	`, uuid.UUID(a.RequestID), a.ApproverID, string(a.ApproverRole), a.CastAt)
	if err != nil {
		return postgres.ClassifyError(err, "insert reveal approval")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.ClassifyError(err, "insert reveal approval")
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, a.RequestID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ListApprovals(ctx context.Context, requestID id.RevealID) ([]*models.Approval, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT request_id, approver_id, approver_role, cast_at
		FROM reveal_approvals WHERE request_id = $1
		ORDER BY cast_at, approver_id
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, postgres.ClassifyError(err, "list reveal approvals")
	}
	defer rows.Close()

	var out []*models.Approval
	for rows.Next() {
		var (
			a    models.Approval
			rid  uuid.UUID
			role string
		)
		if err := rows.Scan(&rid, &a.ApproverID, &role, &a.CastAt); err != nil {
			return nil, postgres.ClassifyError(err, "scan reveal approval")
		}
		a.RequestID = id.RevealID(rid)
		a.ApproverRole = id.Role(role)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError(err, "list reveal approvals")
	}
	return out, nil
}

func (s *PostgresStore) MarkApproved(ctx context.Context, requestID id.RevealID, at time.Time) (bool, error) {
	return s.transition(ctx, requestID, `
		UPDATE reveal_requests SET status = 'approved', approved_at = $2
		WHERE id = $1 AND status = 'pending'
	`, uuid.UUID(requestID), at)
}

func (s *PostgresStore) MarkExecuted(ctx context.Context, requestID id.RevealID, executorID, secret string, at time.Time) (bool, error) {
	return s.transition(ctx, requestID, `
		UPDATE reveal_requests
		SET status = 'executed', executed_at = $2, executor_id = $3, executed_secret = $4
		WHERE id = $1 AND status = 'approved'
	`, uuid.UUID(requestID), at, executorID, secret)
}

func (s *PostgresStore) transition(ctx context.Context, requestID id.RevealID, query string, args ...any) (bool, error) {
	res, err := s.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, postgres.ClassifyError(err, "transition reveal request")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, postgres.ClassifyError(err, "transition reveal request")
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, requestID); err != nil {
			return false, err
		}
	}
	return n == 1, nil
}
