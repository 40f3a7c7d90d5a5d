// Package store keeps the committee registry keyed by organization.
package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"safeharbour/internal/committee/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	members map[id.OrgID]map[string]*models.Member
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[id.OrgID]map[string]*models.Member)}
}

func (s *InMemory) Upsert(_ context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.members[m.OrgID]
	if !ok {
		org = make(map[string]*models.Member)
		s.members[m.OrgID] = org
	}
	if existing, ok := org[m.UIN]; ok {
		m.CreatedAt = existing.CreatedAt
	}
	org[m.UIN] = clone(m)
	return nil
}

func (s *InMemory) FindByUIN(_ context.Context, uin string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.members {
		if m, ok := org[uin]; ok {
			return clone(m), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByOrg(_ context.Context, orgID id.OrgID) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Member, 0, len(s.members[orgID]))
	for _, m := range s.members[orgID] {
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UIN < out[j].UIN
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) FindDesignated(ctx context.Context, orgID id.OrgID, d models.Designation) (*models.Member, error) {
	members, err := s.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.HasDesignation(d) {
			return m, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func clone(m *models.Member) *models.Member {
	c := *m
	c.Designations = slices.Clone(m.Designations)
	return &c
}
