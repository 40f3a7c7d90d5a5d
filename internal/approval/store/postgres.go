package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"safeharbour/internal/approval/models"
	"safeharbour/internal/platform/postgres"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
	txcontext "safeharbour/pkg/platform/tx"
)

// PostgresStore persists approvals. The partial unique index
// approval_requests_one_pending enforces one pending request per subject and
// action; TransitionIfPending is a conditional update so exactly one caller
// wins the pending to executed transition.
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

const requestColumns = `id, subject_id, action_type, status, required_approvals, requires_privileged,
	initiator_id, created_at, executed_at, rejected_at`

func (s *PostgresStore) CreateWithVote(ctx context.Context, req *models.Request, vote *models.Vote) error {
	return txcontext.NewSQLRunner(s.db).RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO approval_requests (`+requestColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.UUID(req.ID), uuid.UUID(req.SubjectID), string(req.ActionType), string(req.Status),
			req.RequiredApprovals, req.RequiresPrivileged, req.InitiatorID, req.CreatedAt,
			req.ExecutedAt, req.RejectedAt)
		if err != nil {
			return postgres.ClassifyError(err, "insert approval request")
		}
		return s.insertVote(ctx, vote)
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.ApprovalID) (*models.Request, error) {
	req, err := scanRequest(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM approval_requests WHERE id = $1`, uuid.UUID(requestID)))
	if err != nil {
		return nil, postgres.ClassifyError(err, "get approval request")
	}
	return req, nil
}

// InsertVote records a vote unless the request was rejected. The status
// check and the insert are one statement.
func (s *PostgresStore) InsertVote(ctx context.Context, vote *models.Vote) error {
	return s.insertVote(ctx, vote)
}

func (s *PostgresStore) insertVote(ctx context.Context, vote *models.Vote) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO approval_votes (request_id, voter_id, voter_role, decision, cast_at)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM approval_requests WHERE id = $1 AND status IN ('pending', 'executed'))
	`, uuid.UUID(vote.RequestID), vote.VoterID, string(vote.VoterRole), string(vote.Decision), vote.CastAt)
	if err != nil {
		return postgres.ClassifyError(err, "insert approval vote")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return postgres.ClassifyError(err, "insert approval vote")
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, vote.RequestID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ListVotes(ctx context.Context, requestID id.ApprovalID) ([]*models.Vote, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT request_id, voter_id, voter_role, decision, cast_at
		FROM approval_votes WHERE request_id = $1
		ORDER BY cast_at, voter_id
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, postgres.ClassifyError(err, "list approval votes")
	}
	defer rows.Close()

	var out []*models.Vote
	for rows.Next() {
		var (
			v         models.Vote
			requestID uuid.UUID
			role      string
			decision  string
		)
		if err := rows.Scan(&requestID, &v.VoterID, &role, &decision, &v.CastAt); err != nil {
			return nil, postgres.ClassifyError(err, "scan approval vote")
		}
		v.RequestID = id.ApprovalID(requestID)
		v.VoterRole = id.Role(role)
		v.Decision = models.Decision(decision)
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.ClassifyError(err, "list approval votes")
	}
	return out, nil
}

func (s *PostgresStore) TransitionIfPending(ctx context.Context, requestID id.ApprovalID, to models.Status, at time.Time) (bool, error) {
	column := "executed_at"
	if to == models.StatusRejected {
		column = "rejected_at"
	}
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE approval_requests SET status = $2, `+column+` = $3
		WHERE id = $1 AND status = 'pending'
	`, uuid.UUID(requestID), string(to), at)
	if err != nil {
		return false, postgres.ClassifyError(err, "transition approval request")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, postgres.ClassifyError(err, "transition approval request")
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, requestID); err != nil {
			return false, err
		}
	}
	return n == 1, nil
}

// RevertToPending is a no-op: the transition and the executor share a
// transaction, so a failed executor rolls the transition back.
func (s *PostgresStore) RevertToPending(context.Context, id.ApprovalID) error {
	return nil
}

func scanRequest(row *sql.Row) (*models.Request, error) {
	var (
		req       models.Request
		requestID uuid.UUID
		subjectID uuid.UUID
		action    string
		status    string
		executed  sql.NullTime
		rejected  sql.NullTime
	)
	if err := row.Scan(&requestID, &subjectID, &action, &status, &req.RequiredApprovals,
		&req.RequiresPrivileged, &req.InitiatorID, &req.CreatedAt, &executed, &rejected); err != nil {
		return nil, err
	}
	req.ID = id.ApprovalID(requestID)
	req.SubjectID = id.CaseID(subjectID)
	req.ActionType = models.ActionType(action)
	req.Status = models.Status(status)
	if executed.Valid {
		req.ExecutedAt = &executed.Time
	}
	if rejected.Valid {
		req.RejectedAt = &rejected.Time
	}
	return &req, nil
}
