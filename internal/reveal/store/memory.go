// Package store persists reveal requests and their approvals.
package store

import (
	"context"
	"sync"
	"time"

	"safeharbour/internal/reveal/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	requests  map[id.RevealID]*models.Request
	approvals map[id.RevealID][]*models.Approval
	open      map[id.CaseID]id.RevealID
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests:  make(map[id.RevealID]*models.Request),
		approvals: make(map[id.RevealID][]*models.Approval),
		open:      make(map[id.CaseID]id.RevealID),
	}
}

func (s *InMemory) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[req.SubjectID]; ok {
		return sentinel.ErrConflict
	}
	copied := *req
	s.requests[req.ID] = &copied
	s.open[req.SubjectID] = req.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RevealID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (s *InMemory) InsertApproval(_ context.Context, a *models.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[a.RequestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if req.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	for _, existing := range s.approvals[a.RequestID] {
		if existing.ApproverID == a.ApproverID {
			return sentinel.ErrConflict
		}
	}
	copied := *a
	s.approvals[a.RequestID] = append(s.approvals[a.RequestID], &copied)
	return nil
}

func (s *InMemory) ListApprovals(_ context.Context, requestID id.RevealID) ([]*models.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Approval, 0, len(s.approvals[requestID]))
	for _, a := range s.approvals[requestID] {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemory) MarkApproved(_ context.Context, requestID id.RevealID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if req.Status != models.StatusPending {
		return false, nil
	}
	req.Status = models.StatusApproved
	req.ApprovedAt = &at
	return true, nil
}

func (s *InMemory) MarkExecuted(_ context.Context, requestID id.RevealID, executorID, secret string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if req.Status != models.StatusApproved {
		return false, nil
	}
	req.Status = models.StatusExecuted
	req.ExecutedAt = &at
	req.ExecutorID = executorID
	req.ExecutedSecret = secret
	delete(s.open, req.SubjectID)
	return true, nil
}
