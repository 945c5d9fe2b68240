package main

import (
	"github.com/contentgraph/api/internal/infra/postgres"
	"github.com/contentgraph/api/pkg/logger"
)

// Repositories holds all storage-layer repositories.
type Repositories struct {
	Relation *postgres.RelationRepository
	Content  *postgres.ContentRepository
	Settings *postgres.SettingsRepository
	Schema   *postgres.SchemaManager
}

// NewRepositories creates all repositories backed by the database.
func NewRepositories(db *postgres.DB, log *logger.Logger) *Repositories {
	settings := postgres.NewSettingsRepository(db)
	return &Repositories{
		Relation: postgres.NewRelationRepository(db),
		Content:  postgres.NewContentRepository(db),
		Settings: settings,
		Schema:   postgres.NewSchemaManager(db, settings, log),
	}
}
