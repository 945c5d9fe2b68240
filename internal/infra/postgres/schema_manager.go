package postgres

import (
	"context"
	"fmt"

	"github.com/contentgraph/api/pkg/logger"
)

// SchemaVersion is the schema version this build targets. EnsureSchema runs
// migration steps only while the stored marker is behind it, so calling it
// on every start is free once the schema is current.
const SchemaVersion = 3

// schemaVersionKey is the settings key holding the stored marker.
const schemaVersionKey = "relations_schema_version"

// SchemaManager owns the relations schema: table, indexes, and versioned
// in-place migrations. Migrations rename and add rather than drop, so
// tables holding millions of rows survive upgrades with their data.
type SchemaManager struct {
	db       *DB
	settings *SettingsRepository
	log      *logger.Logger
}

// NewSchemaManager creates a new SchemaManager.
func NewSchemaManager(db *DB, settings *SettingsRepository, log *logger.Logger) *SchemaManager {
	return &SchemaManager{
		db:       db,
		settings: settings,
		log:      log.With("component", "schema_manager"),
	}
}

// Status describes the stored vs. target schema version.
type Status struct {
	Stored  int  `json:"stored"`
	Target  int  `json:"target"`
	Pending bool `json:"pending"`
}

// Status returns the current migration status.
func (m *SchemaManager) Status(ctx context.Context) (Status, error) {
	if err := m.ensureSettingsTable(ctx); err != nil {
		return Status{}, err
	}
	stored, err := m.settings.GetInt(ctx, schemaVersionKey, 0)
	if err != nil {
		return Status{}, err
	}
	return Status{Stored: stored, Target: SchemaVersion, Pending: stored < SchemaVersion}, nil
}

// EnsureSchema creates or upgrades the schema to the current version.
// Idempotent: a current schema short-circuits on the version marker; every
// structural statement probes before altering, so re-running a partially
// applied step is safe.
func (m *SchemaManager) EnsureSchema(ctx context.Context) error {
	if err := m.ensureSettingsTable(ctx); err != nil {
		return err
	}

	stored, err := m.settings.GetInt(ctx, schemaVersionKey, 0)
	if err != nil {
		return err
	}
	if stored >= SchemaVersion {
		return nil
	}

	m.log.Info("migrating relations schema", "from", stored, "to", SchemaVersion)

	for version := stored + 1; version <= SchemaVersion; version++ {
		if err := m.runStep(ctx, version); err != nil {
			return fmt.Errorf("schema migration to version %d failed: %w", version, err)
		}
		if err := m.settings.SetInt(ctx, schemaVersionKey, version); err != nil {
			return err
		}
		m.log.Info("schema migration applied", "version", version)
	}
	return nil
}

func (m *SchemaManager) runStep(ctx context.Context, version int) error {
	switch version {
	case 1:
		return m.migrateV1(ctx)
	case 2:
		return m.migrateV2(ctx)
	case 3:
		return m.migrateV3(ctx)
	default:
		return fmt.Errorf("unknown schema version %d", version)
	}
}

// migrateV1 creates the base tables.
//
// A pre-versioning install may already hold a content_relations table with
// the legacy column layout (post_id/related_id); CREATE IF NOT EXISTS
// leaves it alone and migrateV2 repairs the layout in place.
func (m *SchemaManager) migrateV1(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS content_items (
			id         BIGSERIAL PRIMARY KEY,
			kind       TEXT NOT NULL DEFAULT 'post',
			subtype    TEXT,
			title      TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL DEFAULT 'draft',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_content_items_kind ON content_items (kind)`,
		`CREATE TABLE IF NOT EXISTS content_relations (
			id         BIGSERIAL PRIMARY KEY,
			from_id    BIGINT NOT NULL,
			to_id      BIGINT NOT NULL,
			type       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	return m.exec(ctx, statements)
}

// migrateV2 renames legacy columns and adds the direction column.
func (m *SchemaManager) migrateV2(ctx context.Context) error {
	// Legacy installs used post_id/related_id.
	if err := m.renameColumnIfExists(ctx, "content_relations", "post_id", "from_id"); err != nil {
		return err
	}
	if err := m.renameColumnIfExists(ctx, "content_relations", "related_id", "to_id"); err != nil {
		return err
	}

	statements := []string{
		`ALTER TABLE content_relations ADD COLUMN IF NOT EXISTS direction TEXT NOT NULL DEFAULT 'unidirectional'`,
		`CREATE INDEX IF NOT EXISTS idx_relations_from ON content_relations (from_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_to ON content_relations (to_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_type ON content_relations (type)`,
	}
	return m.exec(ctx, statements)
}

// migrateV3 adds to_type and relation_order, the composite lookup indexes,
// and the uniqueness constraint.
func (m *SchemaManager) migrateV3(ctx context.Context) error {
	statements := []string{
		`ALTER TABLE content_relations ADD COLUMN IF NOT EXISTS to_type TEXT NOT NULL DEFAULT 'post'`,
		`ALTER TABLE content_relations ADD COLUMN IF NOT EXISTS relation_order INT NOT NULL DEFAULT 0`,
		`CREATE INDEX IF NOT EXISTS idx_relations_from_type ON content_relations (from_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_to_type ON content_relations (to_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_totype_to ON content_relations (to_type, to_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_type_from_to ON content_relations (type, from_id, to_id)`,
		// Pre-constraint rows may hold duplicates; keep the oldest of each
		// group or the unique index cannot be built.
		`DELETE FROM content_relations a USING content_relations b
			WHERE a.id > b.id
			AND a.from_id = b.from_id AND a.to_id = b.to_id
			AND a.type = b.type AND a.to_type = b.to_type`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uidx_relations_edge ON content_relations (from_id, to_id, type, to_type)`,
	}
	return m.exec(ctx, statements)
}

// ensureSettingsTable bootstraps the key-value store holding the version
// marker itself.
func (m *SchemaManager) ensureSettingsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure settings table: %w", err)
	}
	return nil
}

// columnExists probes information_schema for a column.
func (m *SchemaManager) columnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		)
	`, table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe column %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// renameColumnIfExists renames a column only when the legacy name is
// present and the new name is not.
func (m *SchemaManager) renameColumnIfExists(ctx context.Context, table, from, to string) error {
	hasOld, err := m.columnExists(ctx, table, from)
	if err != nil {
		return err
	}
	if !hasOld {
		return nil
	}
	hasNew, err := m.columnExists(ctx, table, to)
	if err != nil {
		return err
	}
	if hasNew {
		return nil
	}

	_, err = m.db.ExecContext(ctx,
		fmt.Sprintf(`ALTER TABLE %s RENAME COLUMN %s TO %s`, table, from, to))
	if err != nil {
		return fmt.Errorf("failed to rename %s.%s to %s: %w", table, from, to, err)
	}
	return nil
}

func (m *SchemaManager) exec(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
