package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
)

// RelationRepository implements relation.Repository using PostgreSQL.
type RelationRepository struct {
	db *DB
}

// NewRelationRepository creates a new RelationRepository.
func NewRelationRepository(db *DB) *RelationRepository {
	return &RelationRepository{db: db}
}

const relationColumns = `id, from_id, to_id, to_type, type, direction, relation_order, created_at`

// Insert persists a new relation row and returns its surrogate id.
// A uniqueness-constraint violation surfaces as relation.ErrRelationExists:
// between two concurrent adds for the same edge, exactly one wins.
func (r *RelationRepository) Insert(ctx context.Context, rel *relation.Relation) (int64, error) {
	query := `
		INSERT INTO content_relations (from_id, to_id, to_type, type, direction, relation_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		rel.FromID,
		rel.ToID,
		rel.ToType.String(),
		rel.Type,
		rel.Direction.String(),
		rel.Order,
	).Scan(&rel.ID, &rel.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return 0, relation.ErrRelationExists
		}
		return 0, fmt.Errorf("failed to insert relation: %w", err)
	}

	return rel.ID, nil
}

// Delete removes rows between the pair. An empty type matches all types.
func (r *RelationRepository) Delete(ctx context.Context, fromID, toID int64, typ string) (int64, error) {
	query := `DELETE FROM content_relations WHERE from_id = $1 AND to_id = $2`
	args := []any{fromID, toID}
	if typ != "" {
		query += ` AND type = $3`
		args = append(args, typ)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete relations: %w", err)
	}
	return result.RowsAffected()
}

// Exists reports whether any row matches. An empty type matches all types.
func (r *RelationRepository) Exists(ctx context.Context, fromID, toID int64, typ string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM content_relations WHERE from_id = $1 AND to_id = $2`
	args := []any{fromID, toID}
	if typ != "" {
		query += ` AND type = $3`
		args = append(args, typ)
	}
	query += `)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check relation existence: %w", err)
	}
	return exists, nil
}

// BidirectionalTypesBetween returns the distinct types of matching rows
// stored bidirectional.
func (r *RelationRepository) BidirectionalTypesBetween(ctx context.Context, fromID, toID int64, typ string) ([]string, error) {
	query := `SELECT DISTINCT type FROM content_relations WHERE from_id = $1 AND to_id = $2 AND direction = $3`
	args := []any{fromID, toID, relation.DirectionBi.String()}
	if typ != "" {
		query += ` AND type = $4`
		args = append(args, typ)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bidirectional relation types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// ListFrom returns outgoing rows, most recent relation first.
func (r *RelationRepository) ListFrom(ctx context.Context, fromID int64, opts relation.ListOptions) ([]*relation.Relation, error) {
	query := `SELECT ` + relationColumns + ` FROM content_relations WHERE from_id = $1`
	args := []any{fromID}
	if opts.Type != "" {
		query += ` AND type = $2`
		args = append(args, opts.Type)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}

	return r.queryRelations(ctx, query, args...)
}

// ListAllFrom returns all outgoing rows grouped by type, most recent first
// within each type.
func (r *RelationRepository) ListAllFrom(ctx context.Context, fromID int64) ([]*relation.Relation, error) {
	query := `
		SELECT ` + relationColumns + `
		FROM content_relations
		WHERE from_id = $1
		ORDER BY type ASC, created_at DESC, id DESC
	`
	return r.queryRelations(ctx, query, fromID)
}

// CountFrom counts outgoing rows. An empty type counts all types.
func (r *RelationRepository) CountFrom(ctx context.Context, fromID int64, typ string) (int64, error) {
	query := `SELECT COUNT(*) FROM content_relations WHERE from_id = $1`
	args := []any{fromID}
	if typ != "" {
		query += ` AND type = $2`
		args = append(args, typ)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count relations: %w", err)
	}
	return count, nil
}

// TargetsFrom returns target ids of outgoing rows of the given type.
// Uses the (type, from_id, to_id) covering index.
func (r *RelationRepository) TargetsFrom(ctx context.Context, fromID int64, typ string) ([]int64, error) {
	query := `SELECT to_id FROM content_relations WHERE type = $1 AND from_id = $2`

	rows, err := r.db.QueryContext(ctx, query, typ, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relation targets: %w", err)
	}
	defer rows.Close()

	var targets []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

// UpdateOrder sets the manual ordering value of a row.
func (r *RelationRepository) UpdateOrder(ctx context.Context, id int64, order int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE content_relations SET relation_order = $2 WHERE id = $1`, id, order)
	if err != nil {
		return fmt.Errorf("failed to update relation order: %w", err)
	}
	return nil
}

// Chunk returns up to limit rows with id > afterID, ordered by id ascending.
func (r *RelationRepository) Chunk(ctx context.Context, afterID int64, limit int) ([]*relation.Relation, error) {
	query := `
		SELECT ` + relationColumns + `
		FROM content_relations
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`
	return r.queryRelations(ctx, query, afterID, limit)
}

// DuplicateGroups finds uniqueness-tuple groups holding more than one row.
// A single aggregate pass; the scanner never builds an in-memory seen-set.
func (r *RelationRepository) DuplicateGroups(ctx context.Context) ([]relation.DuplicateGroup, error) {
	query := `
		SELECT from_id, to_id, type, to_type, MIN(id), COUNT(*)
		FROM content_relations
		GROUP BY from_id, to_id, type, to_type
		HAVING COUNT(*) > 1
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []relation.DuplicateGroup
	for rows.Next() {
		var g relation.DuplicateGroup
		var toType string
		if err := rows.Scan(&g.FromID, &g.ToID, &g.Type, &toType, &g.KeepID, &g.Count); err != nil {
			return nil, err
		}
		g.ToType = content.Kind(toType)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteDuplicates removes every row of the group except KeepID.
func (r *RelationRepository) DeleteDuplicates(ctx context.Context, g relation.DuplicateGroup) (int64, error) {
	query := `
		DELETE FROM content_relations
		WHERE from_id = $1 AND to_id = $2 AND type = $3 AND to_type = $4 AND id <> $5
	`
	result, err := r.db.ExecContext(ctx, query, g.FromID, g.ToID, g.Type, g.ToType.String(), g.KeepID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate relations: %w", err)
	}
	return result.RowsAffected()
}

// DeleteByIDs removes the given rows in one statement.
func (r *RelationRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM content_relations WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete relations by id: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAllFor removes every row touching the object on either side.
func (r *RelationRepository) DeleteAllFor(ctx context.Context, kind content.Kind, id int64) (int64, error) {
	var query string
	if kind == content.KindPost {
		// Posts can appear as source or target.
		query = `DELETE FROM content_relations WHERE from_id = $1 OR (to_type = $2 AND to_id = $1)`
	} else {
		query = `DELETE FROM content_relations WHERE to_type = $2 AND to_id = $1`
	}

	result, err := r.db.ExecContext(ctx, query, id, kind.String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete relations for %s %d: %w", kind, id, err)
	}
	return result.RowsAffected()
}

// Count returns the total number of relation rows.
func (r *RelationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_relations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count relations: %w", err)
	}
	return count, nil
}

func (r *RelationRepository) queryRelations(ctx context.Context, query string, args ...any) ([]*relation.Relation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var results []*relation.Relation
	for rows.Next() {
		var rel relation.Relation
		var toType, direction string
		if err := rows.Scan(
			&rel.ID, &rel.FromID, &rel.ToID, &toType,
			&rel.Type, &direction, &rel.Order, &rel.CreatedAt,
		); err != nil {
			return nil, err
		}
		rel.ToType = content.Kind(toType)
		rel.Direction = relation.Direction(direction)
		results = append(results, &rel)
	}
	return results, rows.Err()
}
