// Package content defines the content objects relations point at: posts,
// users, and taxonomy terms, plus the repository contract for resolving them.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contentgraph/api/pkg/domain/shared"
)

// Kind discriminates which entity universe an object id refers to.
type Kind string

const (
	KindPost Kind = "post"
	KindUser Kind = "user"
	KindTerm Kind = "term"
)

// AllKinds returns all valid endpoint kinds.
func AllKinds() []Kind {
	return []Kind{KindPost, KindUser, KindTerm}
}

// IsValid checks if the kind is valid.
func (k Kind) IsValid() bool {
	return k == KindPost || k == KindUser || k == KindTerm
}

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// ParseKind parses a string into a Kind. Empty input defaults to post.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindPost, nil
	}
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid endpoint kind: %s", shared.ErrValidation, s)
	}
	return k, nil
}

// Status represents the publication status of a content item.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusTrashed   Status = "trashed"
)

// Item is a content object a relation may point at. Posts carry a subtype
// (page, article, product, ...); users and terms leave it empty.
type Item struct {
	ID        int64
	Kind      Kind
	Subtype   string
	Title     string
	Status    Status
	CreatedAt time.Time
}

// RelationDirection selects which side of the relations table binds to the
// listed item's id.
type RelationDirection string

const (
	DirectionOutgoing RelationDirection = "outgoing"
	DirectionIncoming RelationDirection = "incoming"
)

// RelationFilter narrows a content listing to items related to the given ids.
type RelationFilter struct {
	IDs       []int64
	Type      string
	Direction RelationDirection
}

// ListOptions controls content listing.
type ListOptions struct {
	Kind     Kind
	Subtype  string
	Relation *RelationFilter
	Limit    int
	Offset   int
}

// Repository resolves and manages content items.
type Repository interface {
	// Create persists a new item and assigns its id.
	Create(ctx context.Context, item *Item) error

	// Delete removes an item. Returns false when it did not exist.
	// Relation cleanup is the caller's responsibility.
	Delete(ctx context.Context, kind Kind, id int64) (bool, error)

	// Get returns the item, or shared.ErrNotFound.
	Get(ctx context.Context, kind Kind, id int64) (*Item, error)

	// Exists reports whether an item of the given kind exists.
	Exists(ctx context.Context, kind Kind, id int64) (bool, error)

	// Subtype returns the item's subtype ("" for users and terms), or
	// shared.ErrNotFound.
	Subtype(ctx context.Context, kind Kind, id int64) (string, error)

	// List returns items matching the options, deduplicated when a relation
	// filter matches an item through multiple rows.
	List(ctx context.Context, opts ListOptions) ([]*Item, error)
}
