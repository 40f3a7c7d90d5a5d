package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ActorUIN(ctx))
	assert.Empty(t, RequestID(ctx))

	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx = WithTime(WithRequestID(WithActorUIN(ctx, "0123456789"), "req-1"), fixed)

	assert.Equal(t, "0123456789", ActorUIN(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
