// Package context carries request-scoped correlation values used by logging.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type actorKey struct{}

// Actor identifies the caller as asserted by the upstream gateway.
type Actor struct {
	ID   string
	Role string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	actor.ID = strings.TrimSpace(actor.ID)
	actor.Role = strings.TrimSpace(actor.Role)
	if actor.ID == "" && actor.Role == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor role and id, or empty strings.
func ActorFromContext(ctx context.Context) (string, string) {
	actor, ok := ActorValue(ctx)
	if !ok {
		return "", ""
	}
	return actor.Role, actor.ID
}

func ActorValue(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// ActorLabel renders the actor for audit columns, "system" when unknown.
func ActorLabel(ctx context.Context) string {
	actor, ok := ActorValue(ctx)
	if !ok || actor.ID == "" {
		return "system"
	}
	if actor.Role == "" {
		return actor.ID
	}
	return actor.Role + ":" + actor.ID
}
