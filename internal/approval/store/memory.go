// Package store persists approval requests and their votes.
package store

import (
	"context"
	"sync"
	"time"

	"safeharbour/internal/approval/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

type pendingKey struct {
	subject id.CaseID
	action  models.ActionType
}

// InMemory keeps requests and votes behind one mutex so the pending check,
// vote insert and status transition each happen atomically.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.ApprovalID]*models.Request
	votes    map[id.ApprovalID][]*models.Vote
	pending  map[pendingKey]id.ApprovalID
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests: make(map[id.ApprovalID]*models.Request),
		votes:    make(map[id.ApprovalID][]*models.Vote),
		pending:  make(map[pendingKey]id.ApprovalID),
	}
}

func (s *InMemory) CreateWithVote(_ context.Context, req *models.Request, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pendingKey{subject: req.SubjectID, action: req.ActionType}
	if _, ok := s.pending[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.requests[req.ID]; ok {
		return sentinel.ErrConflict
	}
	copied := *req
	s.requests[req.ID] = &copied
	s.pending[key] = req.ID
	v := *vote
	s.votes[req.ID] = []*models.Vote{&v}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.ApprovalID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (s *InMemory) InsertVote(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[vote.RequestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if req.Status == models.StatusRejected {
		return sentinel.ErrInvalidState
	}
	for _, existing := range s.votes[vote.RequestID] {
		if existing.VoterID == vote.VoterID {
			return sentinel.ErrConflict
		}
	}
	v := *vote
	s.votes[vote.RequestID] = append(s.votes[vote.RequestID], &v)
	return nil
}

func (s *InMemory) ListVotes(_ context.Context, requestID id.ApprovalID) ([]*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Vote, 0, len(s.votes[requestID]))
	for _, v := range s.votes[requestID] {
		copied := *v
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemory) TransitionIfPending(_ context.Context, requestID id.ApprovalID, to models.Status, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if req.Status != models.StatusPending {
		return false, nil
	}
	req.Status = to
	switch to {
	case models.StatusExecuted:
		req.ExecutedAt = &at
	case models.StatusRejected:
		req.RejectedAt = &at
	}
	delete(s.pending, pendingKey{subject: req.SubjectID, action: req.ActionType})
	return true, nil
}

// RevertToPending undoes a transition whose side effect failed. The
// memory store has no transaction to roll back.
func (s *InMemory) RevertToPending(_ context.Context, requestID id.ApprovalID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	key := pendingKey{subject: req.SubjectID, action: req.ActionType}
	if _, taken := s.pending[key]; taken {
		return sentinel.ErrConflict
	}
	req.Status = models.StatusPending
	req.ExecutedAt = nil
	req.RejectedAt = nil
	s.pending[key] = requestID
	return nil
}
