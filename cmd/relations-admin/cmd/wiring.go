package cmd

import (
	"context"
	"os"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/internal/infra/postgres"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

// runtime bundles the directly-wired services a command needs. The CLI talks
// straight to the database; every operation runs as the privileged system
// actor.
type runtime struct {
	db        *postgres.DB
	log       *logger.Logger
	relations *app.RelationService
	content   *app.ContentService
	integrity *app.IntegrityService
	transfer  *app.TransferService
	registry  *relation.Registry
	schema    *postgres.SchemaManager
}

// Ctx returns the background context carrying the system actor.
func (rt *runtime) Ctx() context.Context {
	return shared.WithActor(context.Background(), shared.SystemActor)
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.log.Error("failed to close database", "error", err)
	}
}

// newRuntime connects to the database and wires the service graph.
func newRuntime() (*runtime, error) {
	logLevel := "warn"
	if flagVerbose {
		logLevel = "debug"
	}
	log := logger.New(logger.Config{Level: logLevel, Format: "text", Output: os.Stderr})

	dbCfg, graphCfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}

	db, err := postgres.New(dbCfg)
	if err != nil {
		return nil, err
	}

	relationRepo := postgres.NewRelationRepository(db)
	contentRepo := postgres.NewContentRepository(db)
	settings := postgres.NewSettingsRepository(db)
	schema := postgres.NewSchemaManager(db, settings, log)

	hooks := relation.NewHooks()
	registry := relation.Bootstrap(hooks)
	gate := app.NewCapabilityGate()

	relations := app.NewRelationService(relationRepo, contentRepo, registry, gate, hooks, graphCfg, log)
	cleanup := app.NewCleanupService(relationRepo, hooks, log)
	contentSvc := app.NewContentService(contentRepo, registry, cleanup, log)
	integrity := app.NewIntegrityService(relationRepo, contentRepo, registry, log)
	transfer := app.NewTransferService(relationRepo, relations, log)

	return &runtime{
		db:        db,
		log:       log,
		relations: relations,
		content:   contentSvc,
		integrity: integrity,
		transfer:  transfer,
		registry:  registry,
		schema:    schema,
	}, nil
}

// resolveConfig prefers the selected config-file context; environment
// variables fill anything the context leaves out.
func resolveConfig() (*config.DatabaseConfig, config.GraphConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.GraphConfig{}, err
	}
	dbCfg := cfg.Database

	ctxName := flagContext
	if ctxName == "" {
		ctxName = os.Getenv("CONTENTGRAPH_CONTEXT")
	}

	if fileCfg, err := loadConfig(); err == nil {
		if ctxName == "" {
			ctxName = fileCfg.CurrentContext
		}
		if named := fileCfg.GetContext(ctxName); named != nil {
			d := named.Context
			if d.DBHost != "" {
				dbCfg.Host = d.DBHost
			}
			if d.DBPort != 0 {
				dbCfg.Port = d.DBPort
			}
			if d.DBUser != "" {
				dbCfg.User = d.DBUser
			}
			if d.DBPassword != "" {
				dbCfg.Password = d.DBPassword
			}
			if d.DBName != "" {
				dbCfg.Name = d.DBName
			}
			if d.DBSSLMode != "" {
				dbCfg.SSLMode = d.DBSSLMode
			}
		}
	}

	return &dbCfg, cfg.Graph, nil
}
