package shared

import "context"

// Actor identifies who is performing an operation. It is established by the
// HTTP auth middleware (from token claims) or set explicitly by trusted
// entry points such as the admin CLI.
type Actor struct {
	UserID int64
	Name   string
	Roles  []string

	// Privileged marks trusted contexts (admin CLI, maintenance jobs) that
	// bypass immutable-mode restrictions.
	Privileged bool
}

// HasRole reports whether the actor carries the given role.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type actorContextKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, a)
}

// ActorFromContext extracts the actor from the context.
// The second return value is false when no actor was set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorContextKey{}).(Actor)
	return a, ok
}

// SystemActor is used by background jobs and the scheduler.
var SystemActor = Actor{UserID: 0, Name: "system", Roles: []string{"admin"}, Privileged: true}
