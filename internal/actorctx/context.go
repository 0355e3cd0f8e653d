// Package actorctx carries the acting party through a request context.
package actorctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role identifies which side of the transaction an actor is on.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	// RoleSystem marks trusted platform callers: sale origination and the
	// payment gateway webhook.
	RoleSystem Role = "system"
)

// Actor is the authenticated party issuing a command. Authentication itself
// happens upstream; the gateway injects identity headers.
type Actor struct {
	ID   snowflake.ID
	Role Role
}

type actorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext returns the actor from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok {
		return Actor{}, false
	}
	return actor, true
}

// ParseRole normalizes a raw role string.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleBuyer:
		return RoleBuyer, true
	case RoleSeller:
		return RoleSeller, true
	case RoleSystem:
		return RoleSystem, true
	default:
		return "", false
	}
}
