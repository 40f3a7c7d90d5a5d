// Package store persists identities, their email index and vault entries.
package store

import (
	"context"
	"math"
	"sync"

	"safeharbour/internal/identity/models"
	"safeharbour/pkg/platform/sentinel"
)

// InMemory is a process-local identity store for tests and dev mode.
type InMemory struct {
	mu      sync.RWMutex
	nextSeq uint64
	records map[uint32]*models.Record
	emails  map[string]uint32
	vault   map[uint32]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextSeq: 1,
		records: make(map[uint32]*models.Record),
		emails:  make(map[string]uint32),
		vault:   make(map[uint32]string),
	}
}

func (s *InMemory) Create(_ context.Context, in models.NewIdentity) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[in.EmailHash]; exists {
		return nil, sentinel.ErrConflict
	}
	if s.nextSeq > math.MaxUint32 {
		return nil, sentinel.ErrInvalidState
	}
	seq := uint32(s.nextSeq)
	s.nextSeq++

	rec := &models.Record{SeqID: seq, OrgID: in.OrgID, Role: in.Role, CreatedAt: in.CreatedAt}
	s.records[seq] = rec
	s.emails[in.EmailHash] = seq
	s.vault[seq] = in.SecretRef
	copied := *rec
	return &copied, nil
}

func (s *InMemory) FindBySeq(_ context.Context, seq uint32) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[seq]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *InMemory) FindByEmailHash(ctx context.Context, emailHash string) (*models.Record, error) {
	s.mu.RLock()
	seq, ok := s.emails[emailHash]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindBySeq(ctx, seq)
}

func (s *InMemory) VaultSecret(_ context.Context, seq uint32) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.vault[seq]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return secret, nil
}
