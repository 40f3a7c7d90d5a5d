//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"safeharbour/internal/identity/models"
	"safeharbour/internal/identity/store"
	id "safeharbour/pkg/domain"
	"safeharbour/pkg/platform/sentinel"
	"safeharbour/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "identity_vault", "email_index", "identities")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newIdentity(hash string) models.NewIdentity {
	return models.NewIdentity{
		OrgID:     id.NewOrgID(),
		Role:      id.RoleMember,
		EmailHash: hash,
		SecretRef: "vault://" + hash,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	in := s.newIdentity("hash-" + uuid.NewString())

	rec, err := s.store.Create(ctx, in)
	s.Require().NoError(err)

	byHash, err := s.store.FindByEmailHash(ctx, in.EmailHash)
	s.Require().NoError(err)
	s.Equal(rec.SeqID, byHash.SeqID)
	s.Equal(in.OrgID, byHash.OrgID)
	s.Equal(in.Role, byHash.Role)

	secret, err := s.store.VaultSecret(ctx, rec.SeqID)
	s.Require().NoError(err)
	s.Equal(in.SecretRef, secret)
}

func (s *PostgresStoreSuite) TestUnknownSeqIsNotFound() {
	_, err := s.store.FindBySeq(context.Background(), 4_000_000_000)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentSignupSameEmail verifies the email index unique constraint is
// the single serialization point for signup.
func (s *PostgresStoreSuite) TestConcurrentSignupSameEmail() {
	ctx := context.Background()
	hash := "hash-" + uuid.NewString()
	const goroutines = 20

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Create(ctx, s.newIdentity(hash))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}
