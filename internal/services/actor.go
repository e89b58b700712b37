package services

import (
	"context"

	"github.com/yukikurage/hierarchy-api/internal/constants"
	"github.com/yukikurage/hierarchy-api/internal/models"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID       uint64
	Role     models.Role
	ParentID *uint64
	BranchID *uint64
}

// ActorFromUser captures the role and placement of u.
func ActorFromUser(u *models.User) Actor {
	return Actor{
		ID:       u.ID,
		Role:     u.Role,
		ParentID: u.ParentID,
		BranchID: u.BranchID,
	}
}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, constants.ActorKey, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(constants.ActorKey).(Actor)
	return actor, ok
}

func requireActor(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ID == 0 {
		return Actor{}, ErrUnauthenticated
	}
	return actor, nil
}
