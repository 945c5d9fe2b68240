package main

import (
	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/internal/infra/redis"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/logger"
)

// Services holds all application services.
type Services struct {
	Hooks     *relation.Hooks
	Registry  *relation.Registry
	Gate      *app.CapabilityGate
	Relation  *app.RelationService
	Content   *app.ContentService
	Cleanup   *app.CleanupService
	Integrity *app.IntegrityService
	Transfer  *app.TransferService
	Scheduler *app.ScanScheduler
}

// NewServices wires all application services.
func NewServices(cfg *config.Config, repos *Repositories, redisClient *redis.Client, log *logger.Logger) *Services {
	hooks := relation.NewHooks()
	registry := relation.Bootstrap(hooks)
	gate := app.NewCapabilityGate()

	relationSvc := app.NewRelationService(
		repos.Relation, repos.Content, registry, gate, hooks, cfg.Graph, log)
	cleanupSvc := app.NewCleanupService(repos.Relation, hooks, log)
	contentSvc := app.NewContentService(repos.Content, registry, cleanupSvc, log)
	integritySvc := app.NewIntegrityService(repos.Relation, repos.Content, registry, log)
	transferSvc := app.NewTransferService(repos.Relation, relationSvc, log)

	noticeStore := redis.NewNoticeStore(redisClient)
	scheduler := app.NewScanScheduler(integritySvc, repos.Settings, noticeStore, cfg.Scanner, log)

	return &Services{
		Hooks:     hooks,
		Registry:  registry,
		Gate:      gate,
		Relation:  relationSvc,
		Content:   contentSvc,
		Cleanup:   cleanupSvc,
		Integrity: integritySvc,
		Transfer:  transferSvc,
		Scheduler: scheduler,
	}
}
