package relation

import (
	"context"

	"github.com/contentgraph/api/pkg/domain/content"
)

// ListOptions narrows related-object lookups.
type ListOptions struct {
	Type  string
	Limit int
}

// DuplicateGroup identifies a set of rows sharing the same uniqueness
// tuple. KeepID is the lowest row id in the group; Count is the total
// number of rows including the keeper.
type DuplicateGroup struct {
	FromID int64
	ToID   int64
	Type   string
	ToType content.Kind
	KeepID int64
	Count  int64
}

// Repository is the storage contract for relation rows.
//
// Insert maps a uniqueness-constraint violation to ErrRelationExists; that
// constraint is the sole concurrency safety net between simultaneous adds.
type Repository interface {
	// Insert persists a new row and returns its surrogate id.
	Insert(ctx context.Context, rel *Relation) (int64, error)

	// Delete removes rows between the pair. An empty type matches all
	// types. Returns the number of rows removed.
	Delete(ctx context.Context, fromID, toID int64, typ string) (int64, error)

	// Exists reports whether any row matches. An empty type matches all
	// types.
	Exists(ctx context.Context, fromID, toID int64, typ string) (bool, error)

	// BidirectionalTypesBetween returns the distinct types of matching
	// rows stored with the bidirectional direction. Callers consult it
	// before deleting so the mirror delete stays scoped to those types.
	BidirectionalTypesBetween(ctx context.Context, fromID, toID int64, typ string) ([]string, error)

	// ListFrom returns outgoing rows ordered by creation time descending.
	ListFrom(ctx context.Context, fromID int64, opts ListOptions) ([]*Relation, error)

	// ListAllFrom returns all outgoing rows grouped by type, most recent
	// first within each type.
	ListAllFrom(ctx context.Context, fromID int64) ([]*Relation, error)

	// CountFrom counts outgoing rows. An empty type counts all types.
	CountFrom(ctx context.Context, fromID int64, typ string) (int64, error)

	// TargetsFrom returns the target ids of outgoing rows of the given
	// type, for bounded cycle traversal.
	TargetsFrom(ctx context.Context, fromID int64, typ string) ([]int64, error)

	// UpdateOrder sets the manual ordering value of a row.
	UpdateOrder(ctx context.Context, id int64, order int) error

	// Chunk returns up to limit rows with id > afterID, ordered by id
	// ascending. The integrity scanner's resumable forward scan.
	Chunk(ctx context.Context, afterID int64, limit int) ([]*Relation, error)

	// DuplicateGroups finds uniqueness-tuple groups holding more than one
	// row, as a single aggregate query.
	DuplicateGroups(ctx context.Context) ([]DuplicateGroup, error)

	// DeleteDuplicates removes every row of the group except KeepID.
	DeleteDuplicates(ctx context.Context, g DuplicateGroup) (int64, error)

	// DeleteByIDs removes the given rows in one statement.
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)

	// DeleteAllFor removes every row touching the object on either side.
	DeleteAllFor(ctx context.Context, kind content.Kind, id int64) (int64, error)

	// Count returns the total number of rows.
	Count(ctx context.Context) (int64, error)
}
