package middleware

import (
	"context"

	"github.com/angelmondragon/orderflow/pkg/actor"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated actor on ctx.
func WithActor(ctx context.Context, who actor.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, who)
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (actor.Actor, bool) {
	if ctx == nil {
		return actor.Actor{}, false
	}
	who, ok := ctx.Value(ctxActor).(actor.Actor)
	return who, ok && who.ID != ""
}
