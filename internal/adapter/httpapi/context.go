package httpapi

import (
	"context"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
)

type contextKey string

const actorKey = contextKey("actor")

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom returns the authenticated caller, if any.
func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey).(domain.Actor)
	return a, ok
}
