package testutil

import (
	"context"
	"time"

	"safeharbour/pkg/requestcontext"
)

// ActorContext builds a service-level context with an actor and a fixed clock.
func ActorContext(uin string, now time.Time) context.Context {
	ctx := requestcontext.WithActorUIN(context.Background(), uin)
	return requestcontext.WithTime(ctx, now)
}
