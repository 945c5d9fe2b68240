package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/shared"
)

// ContentRepository implements content.Repository using PostgreSQL.
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create persists a new content item and assigns its id.
func (r *ContentRepository) Create(ctx context.Context, item *content.Item) error {
	query := `
		INSERT INTO content_items (kind, subtype, title, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		item.Kind.String(),
		nullString(item.Subtype),
		item.Title,
		string(item.Status),
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create content item: %w", err)
	}
	return nil
}

// Delete removes a content item. Returns false when it did not exist.
func (r *ContentRepository) Delete(ctx context.Context, kind content.Kind, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM content_items WHERE kind = $1 AND id = $2`, kind.String(), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete content item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Get returns the item, or shared.ErrNotFound.
func (r *ContentRepository) Get(ctx context.Context, kind content.Kind, id int64) (*content.Item, error) {
	query := `
		SELECT id, kind, subtype, title, status, created_at
		FROM content_items
		WHERE kind = $1 AND id = $2
	`

	var item content.Item
	var k, status string
	var subtype sql.NullString
	err := r.db.QueryRowContext(ctx, query, kind.String(), id).Scan(
		&item.ID, &k, &subtype, &item.Title, &status, &item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", kind, id, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	item.Kind = content.Kind(k)
	item.Subtype = nullStringValue(subtype)
	item.Status = content.Status(status)
	return &item, nil
}

// Exists reports whether an item of the given kind exists.
func (r *ContentRepository) Exists(ctx context.Context, kind content.Kind, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM content_items WHERE kind = $1 AND id = $2)`,
		kind.String(), id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check content item existence: %w", err)
	}
	return exists, nil
}

// Subtype returns the item's subtype, or shared.ErrNotFound.
func (r *ContentRepository) Subtype(ctx context.Context, kind content.Kind, id int64) (string, error) {
	var subtype sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT subtype FROM content_items WHERE kind = $1 AND id = $2`,
		kind.String(), id,
	).Scan(&subtype)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s %d: %w", kind, id, shared.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get content item subtype: %w", err)
	}
	return nullStringValue(subtype), nil
}

// List returns items matching the options. When a relation filter is set,
// the listing joins the relations table with direction-aware column
// binding; DISTINCT keeps items related through multiple rows from
// appearing more than once.
func (r *ContentRepository) List(ctx context.Context, opts content.ListOptions) ([]*content.Item, error) {
	query := `SELECT DISTINCT c.id, c.kind, c.subtype, c.title, c.status, c.created_at FROM content_items c`
	var conditions []string
	var args []any
	argIdx := 1

	if rf := opts.Relation; rf != nil && len(rf.IDs) > 0 {
		// Outgoing: the listed item is the target of edges leaving the
		// given ids. Incoming: the listed item is the source of edges
		// arriving at them.
		if rf.Direction == content.DirectionIncoming {
			query += fmt.Sprintf(
				` INNER JOIN content_relations rel ON rel.from_id = c.id AND rel.to_id = ANY($%d)`, argIdx)
		} else {
			query += fmt.Sprintf(
				` INNER JOIN content_relations rel ON rel.to_id = c.id AND rel.to_type = c.kind AND rel.from_id = ANY($%d)`, argIdx)
		}
		args = append(args, pq.Array(rf.IDs))
		argIdx++

		if rf.Type != "" {
			conditions = append(conditions, fmt.Sprintf("rel.type = $%d", argIdx))
			args = append(args, rf.Type)
			argIdx++
		}
	}

	if opts.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("c.kind = $%d", argIdx))
		args = append(args, opts.Kind.String())
		argIdx++
	}
	if opts.Subtype != "" {
		conditions = append(conditions, fmt.Sprintf("c.subtype = $%d", argIdx))
		args = append(args, opts.Subtype)
		argIdx++
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY c.created_at DESC, c.id DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}
	defer rows.Close()

	var items []*content.Item
	for rows.Next() {
		var item content.Item
		var k, status string
		var subtype sql.NullString
		if err := rows.Scan(&item.ID, &k, &subtype, &item.Title, &status, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Kind = content.Kind(k)
		item.Subtype = nullStringValue(subtype)
		item.Status = content.Status(status)
		items = append(items, &item)
	}
	return items, rows.Err()
}
