package relation

import (
	"errors"

	"github.com/contentgraph/api/pkg/domain/shared"
)

// Stable error kinds. These are part of the external contract: API, CLI,
// and import/export all branch on them.
const (
	KindRelationNotAllowed  = "relation_not_allowed"
	KindPermissionDenied    = "permission_denied"
	KindInvalidID           = "invalid_id"
	KindSelfRelation        = "self_relation"
	KindEndpointNotFound    = "post_not_found"
	KindImmutableMode       = "immutable_mode"
	KindRelationExists      = "relation_exists"
	KindInfiniteLoop        = "infinite_loop"
	KindMaxRelationships    = "max_relationships"
	KindInvalidRelationType = "invalid_relation_type"
	KindPostTypeNotAllowed  = "post_type_not_allowed"
	KindDBError             = "db_error"
)

// Validation and state-conflict errors surfaced by the relationship API.
// All are returned as values, never panicked; callers check them with
// errors.Is or KindOf.
var (
	ErrRelationNotAllowed  = shared.NewDomainError(KindRelationNotAllowed, "relation vetoed by policy", shared.ErrForbidden)
	ErrPermissionDenied    = shared.NewDomainError(KindPermissionDenied, "not allowed to modify relations for this object", shared.ErrForbidden)
	ErrInvalidID           = shared.NewDomainError(KindInvalidID, "object ids must be positive integers", shared.ErrValidation)
	ErrSelfRelation        = shared.NewDomainError(KindSelfRelation, "an object cannot relate to itself", shared.ErrValidation)
	ErrEndpointNotFound    = shared.NewDomainError(KindEndpointNotFound, "related object does not exist", shared.ErrNotFound)
	ErrImmutableMode       = shared.NewDomainError(KindImmutableMode, "published objects accept relation changes only from privileged contexts", shared.ErrForbidden)
	ErrRelationExists      = shared.NewDomainError(KindRelationExists, "relation already exists", shared.ErrAlreadyExists)
	ErrInfiniteLoop        = shared.NewDomainError(KindInfiniteLoop, "relation would close a cycle", shared.ErrConflict)
	ErrMaxRelationships    = shared.NewDomainError(KindMaxRelationships, "relation limit reached for source object", shared.ErrConflict)
	ErrInvalidRelationType = shared.NewDomainError(KindInvalidRelationType, "relation type is not registered", shared.ErrValidation)
	ErrPostTypeNotAllowed  = shared.NewDomainError(KindPostTypeNotAllowed, "object subtype not allowed for this relation type", shared.ErrValidation)
	ErrDBError             = shared.NewDomainError(KindDBError, "storage backend failure", shared.ErrInternal)
)

// KindOf returns the stable kind string for an error produced by this
// package, or "db_error" for anything unexpected. Returns "" for nil.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return KindDBError
}
