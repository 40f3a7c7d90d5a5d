package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeharbour/internal/approval/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

func newRequest(subject id.CaseID) (*models.Request, *models.Vote) {
	req := &models.Request{
		ID:                id.NewApprovalID(),
		SubjectID:         subject,
		ActionType:        models.ActionCloseCase,
		Status:            models.StatusPending,
		RequiredApprovals: 3,
		InitiatorID:       "1000000001",
	}
	vote := &models.Vote{RequestID: req.ID, VoterID: req.InitiatorID, VoterRole: id.RolePresiding, Decision: models.DecisionApprove}
	return req, vote
}

func TestInMemoryTransitionHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	req, vote := newRequest(id.NewCaseID())
	require.NoError(t, s.CreateWithVote(ctx, req, vote))

	won, err := s.TransitionIfPending(ctx, req.ID, models.StatusExecuted, time.Now())
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.TransitionIfPending(ctx, req.ID, models.StatusExecuted, time.Now())
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, s.InsertVote(ctx, &models.Vote{RequestID: req.ID, VoterID: "1000000002"}),
		"final votes that lose the race are still recorded")
	votes, err := s.ListVotes(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 2)
}

func TestInMemoryRejectedRequestRefusesVotes(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	req, vote := newRequest(id.NewCaseID())
	require.NoError(t, s.CreateWithVote(ctx, req, vote))

	_, err := s.TransitionIfPending(ctx, req.ID, models.StatusRejected, time.Now())
	require.NoError(t, err)

	err = s.InsertVote(ctx, &models.Vote{RequestID: req.ID, VoterID: "1000000002"})
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestInMemoryOnePendingPerSubjectAndAction(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	subject := id.NewCaseID()
	first, v1 := newRequest(subject)
	second, v2 := newRequest(subject)

	require.NoError(t, s.CreateWithVote(ctx, first, v1))
	assert.ErrorIs(t, s.CreateWithVote(ctx, second, v2), sentinel.ErrConflict)

	_, err := s.TransitionIfPending(ctx, first.ID, models.StatusRejected, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.CreateWithVote(ctx, second, v2))

	assert.ErrorIs(t, s.RevertToPending(ctx, first.ID), sentinel.ErrConflict)
}

func TestInMemoryRevertToPending(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	req, vote := newRequest(id.NewCaseID())
	require.NoError(t, s.CreateWithVote(ctx, req, vote))
	_, err := s.TransitionIfPending(ctx, req.ID, models.StatusExecuted, time.Now())
	require.NoError(t, err)

	require.NoError(t, s.RevertToPending(ctx, req.ID))
	got, err := s.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ExecutedAt)
}

func TestInMemoryDuplicateVote(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	req, vote := newRequest(id.NewCaseID())
	require.NoError(t, s.CreateWithVote(ctx, req, vote))
	assert.ErrorIs(t, s.InsertVote(ctx, vote), sentinel.ErrConflict)

	votes, err := s.ListVotes(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}
