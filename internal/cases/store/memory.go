// Package store persists case records.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"safeharbour/internal/cases/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

type InMemory struct {
	mu    sync.RWMutex
	cases map[id.CaseID]*models.Case
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[id.CaseID]*models.Case)}
}

func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return sentinel.ErrConflict
	}
	copied := *c
	s.cases[c.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *InMemory) Transition(_ context.Context, caseID id.CaseID, from []models.Status, to models.Status, now time.Time) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !slices.Contains(from, c.Status) {
		return nil, sentinel.ErrInvalidState
	}
	c.Status = to
	c.UpdatedAt = now
	copied := *c
	return &copied, nil
}

func (s *InMemory) SetInterimRelief(_ context.Context, caseID id.CaseID, at time.Time) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if c.Status.IsTerminal() {
		return nil, sentinel.ErrInvalidState
	}
	granted := at
	c.InterimReliefAt = &granted
	c.UpdatedAt = at
	copied := *c
	return &copied, nil
}
