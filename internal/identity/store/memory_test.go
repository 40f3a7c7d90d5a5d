package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"safeharbour/internal/identity/models"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newIdentity(hash string) models.NewIdentity {
	return models.NewIdentity{
		OrgID:     id.NewOrgID(),
		Role:      id.RoleReporter,
		EmailHash: hash,
		SecretRef: "vault://" + hash,
		CreatedAt: time.Now(),
	}
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	rec, err := s.store.Create(s.ctx, s.newIdentity("h1"))
	s.Require().NoError(err)
	s.Equal(uint32(1), rec.SeqID)

	found, err := s.store.FindByEmailHash(s.ctx, "h1")
	s.Require().NoError(err)
	s.Equal(rec.SeqID, found.SeqID)

	secret, err := s.store.VaultSecret(s.ctx, rec.SeqID)
	s.Require().NoError(err)
	s.Equal("vault://h1", secret)

	_, err = s.store.FindBySeq(s.ctx, 999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDuplicateEmailHashConflicts() {
	_, err := s.store.Create(s.ctx, s.newIdentity("dup"))
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, s.newIdentity("dup"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestConcurrentCreateSameEmail() {
	const goroutines = 20
	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Create(s.ctx, s.newIdentity("race")); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
}
