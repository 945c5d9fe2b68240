package main

import (
	"github.com/contentgraph/api/internal/infra/http"
	"github.com/contentgraph/api/internal/infra/http/handler"
	"github.com/contentgraph/api/internal/infra/jobs"
	"github.com/contentgraph/api/internal/infra/postgres"
	"github.com/contentgraph/api/internal/infra/redis"
	"github.com/contentgraph/api/pkg/logger"
	"github.com/contentgraph/api/pkg/validator"
)

// NewHandlers builds the HTTP handler set.
func NewHandlers(
	db *postgres.DB,
	redisClient *redis.Client,
	repos *Repositories,
	services *Services,
	jobClient *jobs.Client,
	v *validator.Validator,
	log *logger.Logger,
) *http.Handlers {
	return &http.Handlers{
		Health:       handler.NewHealthHandler(db, redisClient, log),
		Relation:     handler.NewRelationHandler(services.Relation, v, log),
		RelationType: handler.NewRelationTypeHandler(services.Registry, v, log),
		Content:      handler.NewContentHandler(services.Content, v, log),
		Integrity: handler.NewIntegrityHandler(
			services.Integrity,
			services.Scheduler,
			services.Transfer,
			repos.Schema,
			redis.NewNoticeStore(redisClient),
			jobClient,
			log,
		),
	}
}
