package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "safeharbour/pkg/platform/audit"
	"safeharbour/pkg/platform/audit/store/memory"
	"safeharbour/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	subjectID := uuid.NewString()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-9"), fixed)

	err := pub.Emit(ctx, audit.New(audit.EventApprovalInitiated, subjectID, "0000000001"))
	require.NoError(t, err)

	events, err := pub.List(context.Background(), subjectID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventApprovalInitiated), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "req-9", events[0].RequestID)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	subjectID := uuid.NewString()
	for range 10 {
		err := pub.Emit(context.Background(), audit.New(audit.EventAlertDelivered, subjectID, ""))
		require.NoError(t, err)
	}

	require.NoError(t, pub.Close())

	events, err := store.ListBySubject(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }
func (failingStore) ListBySubject(context.Context, string) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_ComplianceFailsClosed(t *testing.T) {
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.New(audit.EventRevealExecuted, uuid.NewString(), "0000000002"))
	require.Error(t, err)
}
