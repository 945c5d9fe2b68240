// Package relation defines the typed relationship graph: the relation row
// record, the relation-type registry, lifecycle hooks, and the storage
// contract.
package relation

import (
	"fmt"
	"strings"
	"time"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/shared"
)

// Direction describes whether a relation mirrors back from target to source.
type Direction string

const (
	DirectionUni Direction = "unidirectional"
	DirectionBi  Direction = "bidirectional"
)

// IsValid checks if the direction is valid.
func (d Direction) IsValid() bool {
	return d == DirectionUni || d == DirectionBi
}

// String returns the string representation.
func (d Direction) String() string {
	return string(d)
}

// ParseDirection parses a string into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("%w: invalid direction: %s", shared.ErrValidation, s)
	}
	return d, nil
}

// Relation is one directed edge between two content objects. Bidirectional
// types are stored as two independent rows, one per direction; the service
// layer keeps the pair consistent, not the database.
//
// Direction is redundant with the type's registered directionality but is
// stored per row so historical rows keep their original semantics even if
// the type definition later changes.
type Relation struct {
	ID        int64
	FromID    int64
	ToID      int64
	ToType    content.Kind
	Type      string
	Direction Direction
	Order     int
	CreatedAt time.Time
}

// Mirror returns the reverse edge of a bidirectional relation.
func (r *Relation) Mirror() *Relation {
	return &Relation{
		FromID:    r.ToID,
		ToID:      r.FromID,
		ToType:    r.ToType,
		Type:      r.Type,
		Direction: r.Direction,
		Order:     r.Order,
	}
}

// Related is the compact projection returned by related-object lookups.
type Related struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}
