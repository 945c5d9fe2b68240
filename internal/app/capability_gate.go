package app

import (
	"context"
	"fmt"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
)

// Roles recognized by the capability gate.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleAuthor = "author"
)

// gateKey marks a capability check already in progress on this call path.
type gateKey struct{}

// CapabilityGate maps the abstract "may create/delete a relation from X"
// permissions onto the edit capability of the endpoint object, dispatched
// by endpoint kind. The guard state travels in the context rather than any
// static, so concurrent requests cannot observe each other's checks.
type CapabilityGate struct{}

// NewCapabilityGate creates a new CapabilityGate.
func NewCapabilityGate() *CapabilityGate {
	return &CapabilityGate{}
}

// CanCreate checks the create-relation permission for the source object.
func (g *CapabilityGate) CanCreate(ctx context.Context, kind content.Kind, id int64) error {
	return g.check(ctx, kind, id)
}

// CanDelete checks the delete-relation permission for the source object.
func (g *CapabilityGate) CanDelete(ctx context.Context, kind content.Kind, id int64) error {
	return g.check(ctx, kind, id)
}

func (g *CapabilityGate) check(ctx context.Context, kind content.Kind, id int64) error {
	// Re-entrancy guard: an edit-capability resolver that itself consults
	// relations would re-trigger this mapping. A nested check passes
	// through instead of recursing.
	if inProgress, _ := ctx.Value(gateKey{}).(bool); inProgress {
		return nil
	}
	ctx = context.WithValue(ctx, gateKey{}, true)

	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("no actor in context: %w", relation.ErrPermissionDenied)
	}

	if g.canEdit(ctx, actor, kind, id) {
		return nil
	}
	return fmt.Errorf("%s %d: %w", kind, id, relation.ErrPermissionDenied)
}

// canEdit is the per-kind edit-capability dispatch.
func (g *CapabilityGate) canEdit(_ context.Context, actor shared.Actor, kind content.Kind, id int64) bool {
	if actor.Privileged || actor.HasRole(RoleAdmin) {
		return true
	}
	switch kind {
	case content.KindPost:
		return actor.HasRole(RoleEditor) || actor.HasRole(RoleAuthor)
	case content.KindUser:
		// Users may edit themselves; everyone else needs admin.
		return actor.UserID == id
	case content.KindTerm:
		return actor.HasRole(RoleEditor)
	default:
		return false
	}
}
